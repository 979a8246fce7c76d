package engine2D

import (
	"fmt"

	"depth-parallax/internal/parallax"
	"depth-parallax/internal/utils"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// LoadShader compiles the vertex and fragment stages of p.
func LoadShader(p *parallax.Program) (rl.Shader, error) {
	if p.VertexShader == "" || p.FragmentShader == "" {
		return rl.Shader{}, fmt.Errorf("%w: %s has an empty stage", parallax.ErrShaderCompile, p.Name)
	}

	utils.Debug("Shader: Compiling %s", p.Name)
	shader := rl.LoadShaderFromMemory(p.VertexShader, p.FragmentShader)
	if shader.ID == 0 {
		return rl.Shader{}, fmt.Errorf("%w: %s", parallax.ErrShaderCompile, p.Name)
	}
	utils.Info("Shader: %s - Loaded successfully (ID: %d)", p.Name, shader.ID)
	return shader, nil
}

func ResolveShaderLocations(shader rl.Shader) ShaderParameters {
	return ShaderParameters{
		ColorTexture: rl.GetShaderLocation(shader, parallax.UniformColorTexture),
		DepthTexture: rl.GetShaderLocation(shader, parallax.UniformDepthTexture),
		Offset:       rl.GetShaderLocation(shader, parallax.UniformOffset),
	}
}

// ApplyUniforms uploads the current uniform values. Must run between
// rl.BeginShaderMode and the draw.
func ApplyUniforms(shader rl.Shader, parameters *ShaderParameters, colorTex, depthTex rl.Texture2D, offset parallax.Vec2) {
	if parameters.DepthTexture != -1 {
		rl.SetShaderValueTexture(shader, parameters.DepthTexture, depthTex)
	}
	if parameters.ColorTexture != -1 {
		rl.SetShaderValueTexture(shader, parameters.ColorTexture, colorTex)
	}
	if parameters.Offset != -1 {
		rl.SetShaderValue(shader, parameters.Offset, []float32{float32(offset.X), float32(offset.Y)}, rl.ShaderUniformVec2)
	}
}

func wrapMode(mode parallax.WrapMode) rl.TextureWrapMode {
	if mode == parallax.WrapRepeat {
		return rl.TextureWrapRepeat
	}
	return rl.TextureWrapClamp
}

// filterMode picks the raylib filter for s. raylib sets min and mag
// filtering together, so point sampling is used only when both ask for it.
func filterMode(s parallax.Sampling) rl.TextureFilterMode {
	if s.MinFilter == parallax.FilterNearest && s.MagFilter == parallax.FilterNearest {
		return rl.FilterPoint
	}
	return rl.FilterBilinear
}
