package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"depth-parallax/internal/config"
	"depth-parallax/internal/convert"
	"depth-parallax/internal/engine2D"
	"depth-parallax/internal/parallax"
	"depth-parallax/internal/utils"

	rl "github.com/gen2brain/raylib-go/raylib"
	"golang.org/x/term"
)

func init() {
	// raylib and the GL context are bound to the main thread.
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	colorFlag := flag.String("color", "", "Color image (overrides config)")
	depthFlag := flag.String("depth", "", "Depth map image (overrides config)")
	assetsFlag := flag.String("assets", "", "Additional directory to search for images")
	debugFlag := flag.Bool("debug", false, "Enable verbose debug logging and show the F8 overlay")
	pointerFlag := flag.String("pointer", "", "Pointer source: window or x11")
	widthFlag := flag.Int("width", 0, "Window width")
	heightFlag := flag.Int("height", 0, "Window height")
	snapshotFlag := flag.String("snapshot", "", "Render without a window and write a PNG to this path")
	snapshotPointer := flag.String("snapshot-pointer", "", "Pointer position x,y used with -snapshot")
	snapshotTicks := flag.Int("snapshot-ticks", 1, "Number of frames rendered with -snapshot")
	flag.Parse()

	utils.NoColor = !term.IsTerminal(int(os.Stderr.Fd()))

	cfg, err := config.Load(resolveConfig(*configPath))
	if err != nil {
		utils.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	applyFlags(&cfg, *colorFlag, *depthFlag, *assetsFlag, *pointerFlag, *widthFlag, *heightFlag)
	if err := cfg.Validate(); err != nil {
		utils.Error("Invalid settings: %v", err)
		os.Exit(1)
	}

	level, err := utils.ParseLevel(cfg.LogLevel)
	if err != nil {
		utils.Warn("%v, using info", err)
		level = utils.LevelInfo
	}
	utils.CurrentLevel = level
	utils.SetDebug(*debugFlag || level == utils.LevelDebug)
	utils.ShowDebugUI = *debugFlag
	utils.ShowRaylibInfo = cfg.RaylibInfo

	utils.AssetsPath = cfg.AssetsPath
	convert.TextureOutDir = cfg.TexCache

	colorPath := resolveImage(cfg.Color)
	depthPath := resolveImage(cfg.Depth)
	utils.Debug("Color image: %s, depth map: %s", colorPath, depthPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *snapshotFlag != "" {
		opts := snapshotOptions{
			Output:  *snapshotFlag,
			Pointer: *snapshotPointer,
			Ticks:   *snapshotTicks,
			Width:   cfg.Window.Width,
			Height:  cfg.Window.Height,
		}
		if err := runSnapshot(ctx, cfg, colorPath, depthPath, opts); err != nil {
			utils.Error("Snapshot failed: %v", err)
			os.Exit(1)
		}
		return
	}

	if code := runWindow(ctx, cfg, colorPath, depthPath); code != 0 {
		os.Exit(code)
	}
}

func applyFlags(cfg *config.Config, color, depth, assets, pointer string, width, height int) {
	if color != "" {
		cfg.Color = color
	}
	if depth != "" {
		cfg.Depth = depth
	}
	if assets != "" {
		cfg.AssetsPath = assets
	}
	if pointer != "" {
		cfg.Window.Pointer = pointer
	}
	if width > 0 {
		cfg.Window.Width = width
	}
	if height > 0 {
		cfg.Window.Height = height
	}
}

// resolveConfig looks for a relative config path in the working directory
// and then under ./assets.
func resolveConfig(path string) string {
	if path == "" {
		return ""
	}
	return utils.ResolveAssetPath(path)
}

// resolveImage falls back to the name as given so a missing asset is
// reported by the loader instead of aborting startup.
func resolveImage(name string) string {
	if p := utils.FindImageFile(name); p != "" {
		return p
	}
	utils.Warn("Image %s not found in asset paths", name)
	return name
}

func runWindow(ctx context.Context, cfg config.Config, colorPath, depthPath string) int {
	utils.Info("--- Depth Parallax Start ---")

	rl.SetTraceLogCallback(utils.RaylibLogCallback)
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagWindowHighdpi | rl.FlagVsyncHint)
	rl.InitWindow(int32(cfg.Window.Width), int32(cfg.Window.Height), cfg.Window.Title)
	defer rl.CloseWindow()

	if !rl.IsWindowReady() {
		utils.Error("Failed to open window: %v", parallax.ErrContextLost)
		return 1
	}
	if cfg.Window.TargetFPS > 0 {
		rl.SetTargetFPS(int32(cfg.Window.TargetFPS))
	}

	background, err := cfg.Window.BackgroundColor()
	if err != nil {
		utils.Error("%v", err)
		return 1
	}

	window := NewWindow(newPointerSource(cfg.Window.Pointer))
	defer utils.CloseX11()

	session, err := parallax.Mount(ctx, window, engine2D.NewRenderer(background), window.Scheduler(), parallax.Options{
		ColorPath: colorPath,
		DepthPath: depthPath,
		Tracking:  cfg.Tracking,
		Decode:    convert.DecodeImage,
		OnFatal:   window.Fail,
	})
	if err != nil {
		utils.Error("Failed to mount renderer: %v", err)
		return 1
	}
	window.Attach(session)

	utils.Info("Starting render loop...")
	runErr := window.Run(ctx)
	if err := session.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		utils.Error("Render loop error: %v", runErr)
		return 1
	}
	return 0
}
