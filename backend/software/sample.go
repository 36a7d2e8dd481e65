package software

import (
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfx/backend"
)

// sample reads tex at normalized (u, v) using desc.
func sample(tex *texture, desc backend.SamplerDescriptor, u, v float32) rgba {
	w, h := tex.Width(), tex.Height()
	if desc.Filter == gputypes.FilterModeLinear {
		fx := u*float32(w) - 0.5
		fy := v*float32(h) - 0.5
		x0 := int(math.Floor(float64(fx)))
		y0 := int(math.Floor(float64(fy)))
		tx, ty := fx-float32(x0), fy-float32(y0)

		c00 := texel(tex, desc.AddressMode, x0, y0)
		c10 := texel(tex, desc.AddressMode, x0+1, y0)
		c01 := texel(tex, desc.AddressMode, x0, y0+1)
		c11 := texel(tex, desc.AddressMode, x0+1, y0+1)
		return lerp(lerp(c00, c10, tx), lerp(c01, c11, tx), ty)
	}
	x := int(math.Floor(float64(u * float32(w))))
	y := int(math.Floor(float64(v * float32(h))))
	return texel(tex, desc.AddressMode, x, y)
}

func texel(tex *texture, mode gputypes.AddressMode, x, y int) rgba {
	x = address(mode, x, tex.Width())
	y = address(mode, y, tex.Height())
	i := tex.img.PixOffset(x, y)
	p := tex.img.Pix[i : i+4 : i+4]
	return rgba{
		R: float32(p[0]) / 255,
		G: float32(p[1]) / 255,
		B: float32(p[2]) / 255,
		A: float32(p[3]) / 255,
	}
}

// address maps texel coordinate i into [0, n).
func address(mode gputypes.AddressMode, i, n int) int {
	switch mode {
	case gputypes.AddressModeRepeat:
		i %= n
		if i < 0 {
			i += n
		}
		return i
	case gputypes.AddressModeMirrorRepeat:
		period := 2 * n
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - 1 - i
		}
		return i
	default:
		return min(max(i, 0), n-1)
	}
}

func lerp(a, b rgba, t float32) rgba {
	return rgba{
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
		A: a.A + (b.A-a.A)*t,
	}
}
