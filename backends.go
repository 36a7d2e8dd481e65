package gfx

// Both adapters register themselves on import.
import (
	_ "github.com/gogpu/gfx/backend/native"
	_ "github.com/gogpu/gfx/backend/software"
)
