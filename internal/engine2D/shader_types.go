package engine2D

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// ShaderParameters caches the uniform locations of the parallax program.
// A location of -1 means the uniform was optimized out or is missing.
type ShaderParameters struct {
	ColorTexture int32
	DepthTexture int32
	Offset       int32
}

// gpuTexture is the GPU copy of one parallax.Texture.
type gpuTexture struct {
	texture rl.Texture2D
	version uint64
	loaded  bool
}
