package frame

import "sort"

// Teletext characters cover a 2x3 block of subpixels each.
const (
	blitCellW = 2
	blitCellH = 3
)

var hexDigits = []byte("0123456789abcdef")

// CanBlit reports whether the frame dimensions divide evenly into 2x3
// teletext character cells.
func (f *Frame) CanBlit() bool {
	return f.Cols%blitCellW == 0 && f.Rows%blitCellH == 0
}

// Blit packs the frame into a terminal draw string: for every character
// row, the teletext character bytes, then the foreground colour hex
// digits, then the background hex digits, all concatenated. The monitor
// redraws a row with plain substring and blit calls.
//
// A teletext character can show at most two colours. When a 2x3 cell
// holds more, the two most common win (ties favour the lower code) and
// the rest are approximated. The character's sixth subpixel is not
// addressable, so the cell's colour roles follow whichever colour that
// subpixel carries.
func (f *Frame) Blit() []byte {
	chCols := f.Cols / blitCellW
	chRows := f.Rows / blitCellH
	out := make([]byte, chCols*chRows*3)

	for cy := 0; cy < chRows; cy++ {
		y := cy * blitCellH
		for cx := 0; cx < chCols; cx++ {
			x := cx * blitCellW

			var totals [PaletteSize]int
			unique := 0
			for dx := 0; dx < blitCellW; dx++ {
				for dy := 0; dy < blitCellH; dy++ {
					c := f.At(x+dx, y+dy)
					if totals[c] == 0 {
						unique++
					}
					totals[c]++
				}
			}

			var text, fg, bg byte
			if unique == 1 {
				for c, n := range totals {
					if n > 0 {
						bg = byte(c)
						break
					}
				}
				text, fg = ' ', 0
			} else {
				var order [PaletteSize]uint8
				for i := range order {
					order[i] = uint8(i)
				}
				sort.SliceStable(order[:], func(i, j int) bool {
					return totals[order[i]] > totals[order[j]]
				})
				bg, fg = order[0], order[1]

				last := bg
				if f.At(x+1, y+2) == fg {
					last = fg
				}

				code := byte(128)
				for dx := 0; dx < blitCellW; dx++ {
					for dy := 0; dy < blitCellH; dy++ {
						if dx == 1 && dy == 2 {
							continue
						}
						if f.At(x+dx, y+dy) != last {
							code |= 1 << (2*dy + dx)
						}
					}
				}
				text = code
				if last != bg {
					fg, bg = bg, fg
				}
			}

			base := cy * chCols * 3
			out[base+cx] = text
			out[base+chCols+cx] = hexDigits[fg]
			out[base+2*chCols+cx] = hexDigits[bg]
		}
	}
	return out
}
