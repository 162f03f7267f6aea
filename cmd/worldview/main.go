// Command worldview converts a RENDER request JSON file into a .glb mesh so
// a request's world can be inspected in any glTF viewer. Each occupied voxel
// becomes a unit cube with faces against occupied neighbours culled; vertex
// colours follow the near-shade palette entry for the material.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"voxray.dev/internal/frame"
	"voxray.dev/internal/protocol"
	"voxray.dev/internal/raycast"
	"voxray.dev/internal/voxel"
)

func main() {
	var (
		inPath     = flag.String("in", "", "RENDER request JSON file")
		outPath    = flag.String("out", "world.glb", "output .glb path")
		markViewer = flag.Bool("mark_viewer", true, "add a half-size white cube at the viewer position")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[worldview] ", 0)
	if *inPath == "" {
		logger.Fatal("missing -in")
	}

	b, err := os.ReadFile(*inPath)
	if err != nil {
		logger.Fatalf("read request: %v", err)
	}
	var req protocol.RenderMsg
	if err := json.Unmarshal(b, &req); err != nil {
		logger.Fatalf("parse request: %v", err)
	}

	w, err := voxel.Build(req.World)
	if err != nil {
		logger.Fatalf("build world: %v", err)
	}
	if w.Occupied() == 0 {
		logger.Fatal("request world has no occupied cells")
	}

	m := buildMesh(w)
	if *markViewer {
		m.addViewerMarker(req.Viewer)
	}
	logger.Printf("%d voxels -> %d quads", w.Occupied(), len(m.indices)/6)

	if err := writeGLB(m, *outPath); err != nil {
		logger.Fatalf("write glb: %v", err)
	}
	fmt.Println(*outPath)
}

type meshData struct {
	positions [][3]float32
	normals   [][3]float32
	colors    [][4]float32
	indices   []uint32
	hasAlpha  bool
}

// Each face: outward normal plus four corner offsets wound counter-clockwise
// seen from outside the cube.
type faceSpec struct {
	neighbor voxel.Coord
	normal   [3]float32
	corners  [4][3]float32
}

var faces = [6]faceSpec{
	{voxel.Coord{X: 1}, [3]float32{1, 0, 0},
		[4][3]float32{{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {1, 0, 1}}},
	{voxel.Coord{X: -1}, [3]float32{-1, 0, 0},
		[4][3]float32{{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0}}},
	{voxel.Coord{Y: 1}, [3]float32{0, 1, 0},
		[4][3]float32{{0, 1, 0}, {0, 1, 1}, {1, 1, 1}, {1, 1, 0}}},
	{voxel.Coord{Y: -1}, [3]float32{0, -1, 0},
		[4][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}}},
	{voxel.Coord{Z: 1}, [3]float32{0, 0, 1},
		[4][3]float32{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}}},
	{voxel.Coord{Z: -1}, [3]float32{0, 0, -1},
		[4][3]float32{{0, 0, 0}, {0, 1, 0}, {1, 1, 0}, {1, 0, 0}}},
}

func buildMesh(w *voxel.World) *meshData {
	// Distance 0 always lands in the near bucket, so this pulls the
	// near-shade code for each material without a second palette table.
	shader := frame.NewShader(1, 2)

	m := &meshData{}
	for _, c := range w.Coords() {
		mat := w.MaterialAt(c)
		rgba := colorFor(shader, mat)
		if rgba[3] < 1 {
			m.hasAlpha = true
		}
		for _, f := range faces {
			n := voxel.Coord{X: c.X + f.neighbor.X, Y: c.Y + f.neighbor.Y, Z: c.Z + f.neighbor.Z}
			if w.MaterialAt(n) != voxel.Air {
				continue
			}
			m.addQuad(c, f, rgba)
		}
	}
	return m
}

func (m *meshData) addQuad(c voxel.Coord, f faceSpec, rgba [4]float32) {
	base := uint32(len(m.positions))
	for _, corner := range f.corners {
		m.positions = append(m.positions, [3]float32{
			float32(c.X) + corner[0],
			float32(c.Y) + corner[1],
			float32(c.Z) + corner[2],
		})
		m.normals = append(m.normals, f.normal)
		m.colors = append(m.colors, rgba)
	}
	m.indices = append(m.indices, base, base+1, base+2, base, base+2, base+3)
}

// addViewerMarker drops a white half-size cube centered on the viewer so the
// camera position is visible in the exported scene.
func (m *meshData) addViewerMarker(viewer [3]float64) {
	white := rgbaOf(frame.PaletteRGB[0], 1)
	const h = 0.25
	for _, f := range faces {
		base := uint32(len(m.positions))
		for _, corner := range f.corners {
			m.positions = append(m.positions, [3]float32{
				float32(viewer[0]) + (corner[0]-0.5)*2*h,
				float32(viewer[1]) + (corner[1]-0.5)*2*h,
				float32(viewer[2]) + (corner[2]-0.5)*2*h,
			})
			m.normals = append(m.normals, f.normal)
			m.colors = append(m.colors, white)
		}
		m.indices = append(m.indices, base, base+1, base+2, base, base+2, base+3)
	}
}

func colorFor(shader frame.Shader, mat voxel.Material) [4]float32 {
	code := shader.Shade(raycast.Hit{Material: mat, Distance: 0}, true)
	alpha := float32(1)
	if mat == voxel.Water {
		alpha = 0.85
	}
	return rgbaOf(frame.PaletteRGB[code], alpha)
}

func rgbaOf(rgb uint32, alpha float32) [4]float32 {
	return [4]float32{
		float32((rgb>>16)&0xFF) / 255,
		float32((rgb>>8)&0xFF) / 255,
		float32(rgb&0xFF) / 255,
		alpha,
	}
}

func writeGLB(m *meshData, outPath string) error {
	doc := gltf.NewDocument()
	doc.Asset.Generator = "voxray worldview"

	posAccessor := modeler.WritePosition(doc, m.positions)
	normalAccessor := modeler.WriteNormal(doc, m.normals)
	colorAccessor := modeler.WriteColor(doc, m.colors)
	indicesAccessor := modeler.WriteIndices(doc, m.indices)

	prim := &gltf.Primitive{
		Attributes: map[string]uint32{
			gltf.POSITION: uint32(posAccessor),
			gltf.NORMAL:   uint32(normalAccessor),
			gltf.COLOR_0:  uint32(colorAccessor),
		},
		Indices: gltf.Index(uint32(indicesAccessor)),
	}

	material := &gltf.Material{
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{1, 1, 1, 1},
			MetallicFactor:  gltf.Float(0),
			RoughnessFactor: gltf.Float(1),
		},
		AlphaMode: gltf.AlphaOpaque,
	}
	if m.hasAlpha {
		material.AlphaMode = gltf.AlphaBlend
	}
	doc.Materials = []*gltf.Material{material}
	prim.Material = gltf.Index(0)

	doc.Meshes = []*gltf.Mesh{{Name: "World", Primitives: []*gltf.Primitive{prim}}}
	doc.Nodes = []*gltf.Node{{Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	return gltf.SaveBinary(doc, outPath)
}
