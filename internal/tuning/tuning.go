package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning carries the fixed render constants: field of view, trace range,
// shade bucket boundaries and the hardware grid limits. It is loaded once
// at process start and read-only afterwards.
type Tuning struct {
	HFOVDeg      float64 `yaml:"h_fov_deg"`
	VFOVDeg      float64 `yaml:"v_fov_deg"`
	MaxTraceDist float64 `yaml:"max_trace_dist"`

	BucketNear float64 `yaml:"bucket_near"`
	BucketMid  float64 `yaml:"bucket_mid"`

	MaxCols int `yaml:"max_cols"`
	MaxRows int `yaml:"max_rows"`

	Workers         int   `yaml:"workers"`
	MaxMessageBytes int64 `yaml:"max_message_bytes"`
}

// Defaults returns the constants used when no tuning file is present. The
// grid limits fit a max-size monitor minus a one character margin: 162x79
// characters at 2x3 subpixels each.
func Defaults() Tuning {
	return Tuning{
		HFOVDeg:         70,
		VFOVDeg:         52.5,
		MaxTraceDist:    64,
		BucketNear:      12,
		BucketMid:       28,
		MaxCols:         324,
		MaxRows:         237,
		Workers:         0,
		MaxMessageBytes: 8 << 20,
	}
}

// Load reads a tuning file. A missing file falls back to Defaults; a
// present but unreadable or invalid one is an error. Fields absent from
// the file keep their default values.
func Load(path string) (Tuning, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Defaults(), nil
	}
	if err != nil {
		return Tuning{}, err
	}
	t := Defaults()
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Tuning{}, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Validate rejects constants the render pipeline cannot work with.
func (t Tuning) Validate() error {
	switch {
	case t.HFOVDeg <= 0 || t.HFOVDeg >= 180:
		return fmt.Errorf("h_fov_deg %v outside (0,180)", t.HFOVDeg)
	case t.VFOVDeg <= 0 || t.VFOVDeg >= 180:
		return fmt.Errorf("v_fov_deg %v outside (0,180)", t.VFOVDeg)
	case t.MaxTraceDist <= 0:
		return fmt.Errorf("max_trace_dist %v not positive", t.MaxTraceDist)
	case t.BucketNear <= 0 || t.BucketMid <= t.BucketNear:
		return fmt.Errorf("shade buckets %v/%v not ascending", t.BucketNear, t.BucketMid)
	case t.MaxCols < 1 || t.MaxRows < 1:
		return fmt.Errorf("grid limits %dx%d not positive", t.MaxCols, t.MaxRows)
	case t.Workers < 0:
		return fmt.Errorf("workers %d negative", t.Workers)
	case t.MaxMessageBytes < 1024:
		return fmt.Errorf("max_message_bytes %d too small", t.MaxMessageBytes)
	}
	return nil
}
