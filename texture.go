package gfx

import (
	"errors"
	"fmt"
	"image"

	gfximage "github.com/gogpu/gfx/internal/image"
)

// CreateTextureFromFile decodes the image at path and uploads it.
// It returns InvalidHandle if the file cannot be read or decoded, or the
// upload fails; the cause is logged. Use LoadTexture to get the error.
func (c *Context) CreateTextureFromFile(path string) Handle {
	h, err := c.LoadTexture(path)
	if err != nil {
		if c.active() != nil {
			c.log.Warn("gfx: texture not created", "path", path, "err", err)
		}
		return InvalidHandle
	}
	return h
}

// LoadTexture decodes the first of paths that loads and uploads it.
// Later paths are fallbacks, for example the same asset one directory up.
func (c *Context) LoadTexture(paths ...string) (Handle, error) {
	if c.active() == nil {
		return InvalidHandle, ErrNoContext
	}
	if len(paths) == 0 {
		return InvalidHandle, fmt.Errorf("%w: no path", ErrTextureNotFound)
	}

	var errs []error
	for _, p := range paths {
		img, err := c.opts.loadImage(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		h, err := c.createTexture(img)
		if err != nil {
			return InvalidHandle, fmt.Errorf("gfx: upload %s: %w", p, err)
		}
		c.log.Debug("gfx: texture loaded", "path", p, "handle", h,
			"width", img.Rect.Dx(), "height", img.Rect.Dy())
		return h, nil
	}
	return InvalidHandle, fmt.Errorf("%w: %w", ErrTextureNotFound, errors.Join(errs...))
}

// CreateTextureFromImage uploads img. It returns InvalidHandle for a nil
// or empty image or when the backend rejects it.
func (c *Context) CreateTextureFromImage(img image.Image) Handle {
	if c.active() == nil {
		return InvalidHandle
	}
	if img == nil || img.Bounds().Empty() {
		c.log.Warn("gfx: texture not created", "err", ErrNilImage)
		return InvalidHandle
	}
	h, err := c.createTexture(gfximage.ToNRGBA(img))
	if err != nil {
		c.log.Warn("gfx: texture not created", "err", err)
		return InvalidHandle
	}
	return h
}

func (c *Context) createTexture(img *image.NRGBA) (Handle, error) {
	tex, err := c.adapter.CreateTexture(img)
	if err != nil {
		return InvalidHandle, err
	}
	return c.textures.Store(tex), nil
}

// TextureSize returns the pixel size of the texture behind h.
func (c *Context) TextureSize(h Handle) (width, height int, ok bool) {
	if c.active() == nil {
		return 0, 0, false
	}
	tex, ok := c.textures.Get(h)
	if !ok {
		return 0, 0, false
	}
	return tex.Width(), tex.Height(), true
}
