// Package config holds every tunable of the coffee scene. Defaults describe
// the shipped scene; a TOML file may override any subset.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that reads and writes as "1.5s" in TOML.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) Seconds() float64 { return time.Duration(d).Seconds() }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("duration %q: %w", string(b), err)
	}
	*d = Duration(v)
	return nil
}

type Config struct {
	Window   Window   `toml:"window"`
	Assets   Assets   `toml:"assets"`
	Loading  Loading  `toml:"loading"`
	Camera   Camera   `toml:"camera"`
	Renderer Renderer `toml:"renderer"`
	Text     Text     `toml:"text"`
	Model    Model    `toml:"model"`
	Dev      Dev      `toml:"dev"`
	Log      Log      `toml:"log"`
}

type Window struct {
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
	Title   string `toml:"title"`
	VSync   bool   `toml:"vsync"`
	Samples int    `toml:"samples"`
}

type Assets struct {
	Root         string `toml:"root"`
	BakedTexture string `toml:"baked_texture"`
	Perlin       string `toml:"perlin"`
	Perlin2      string `toml:"perlin2"`
	Matcap       string `toml:"matcap"`
	Model        string `toml:"model"`
	Font         string `toml:"font"`
}

type Loading struct {
	RevealDelay  Duration `toml:"reveal_delay"`
	FadeDelay    Duration `toml:"fade_delay"`
	FadeDuration Duration `toml:"fade_duration"`
	Timeout      Duration `toml:"timeout"`
	Workers      int      `toml:"workers"`
}

type Camera struct {
	FOV        float32    `toml:"fov"`
	Near       float32    `toml:"near"`
	Far        float32    `toml:"far"`
	Position   [3]float32 `toml:"position"`
	MinPolar   float32    `toml:"min_polar"`
	MaxPolar   float32    `toml:"max_polar"`
	MinAzimuth float32    `toml:"min_azimuth"`
	MaxAzimuth float32    `toml:"max_azimuth"`
	MinDist    float32    `toml:"min_distance"`
	MaxDist    float32    `toml:"max_distance"`
}

type Renderer struct {
	ToneMapping   string  `toml:"tone_mapping"`
	Exposure      float32 `toml:"exposure"`
	MaxPixelRatio float32 `toml:"max_pixel_ratio"`
}

type Text struct {
	Content        string     `toml:"content"`
	Size           float32    `toml:"size"`
	Depth          float32    `toml:"depth"`
	CurveSegments  int        `toml:"curve_segments"`
	BevelEnabled   bool       `toml:"bevel_enabled"`
	BevelThickness float32    `toml:"bevel_thickness"`
	BevelSize      float32    `toml:"bevel_size"`
	BevelOffset    float32    `toml:"bevel_offset"`
	BevelSegments  int        `toml:"bevel_segments"`
	MergeTolerance float32    `toml:"merge_tolerance"`
	Position       [3]float32 `toml:"position"`
	RotationY      float32    `toml:"rotation_y"`
}

type Model struct {
	RotationY float32 `toml:"rotation_y"`
	PositionY float32 `toml:"position_y"`
}

type Dev struct {
	// ShaderDir, when set, is watched and its *.vert / *.frag files replace
	// the embedded programs on change.
	ShaderDir string `toml:"shader_dir"`
}

type Log struct {
	Level string `toml:"level"`
}

func Default() Config {
	return Config{
		Window: Window{
			Width:   1280,
			Height:  720,
			Title:   "But first Coffee!!",
			VSync:   true,
			Samples: 4,
		},
		Assets: Assets{
			Root:         "static",
			BakedTexture: "/Model/baked.jpg",
			Perlin:       "/Noise/perlin.png",
			Perlin2:      "/Noise/perlin2.png",
			Matcap:       "Matcap/matcap.png",
			Model:        "Model/coffee.glb",
			Font:         "Font/Playwrite CU_Regular.json",
		},
		Loading: Loading{
			RevealDelay:  Duration(time.Second),
			FadeDelay:    Duration(500 * time.Millisecond),
			FadeDuration: Duration(1500 * time.Millisecond),
			Timeout:      Duration(30 * time.Second),
			Workers:      4,
		},
		Camera: Camera{
			FOV:        75,
			Near:       0.1,
			Far:        100,
			Position:   [3]float32{4, 5, 6},
			MinPolar:   math.Pi / 4,
			MaxPolar:   math.Pi / 2,
			MinAzimuth: -math.Pi / 6,
			MaxAzimuth: math.Pi / 2,
			MinDist:    2,
			MaxDist:    12,
		},
		Renderer: Renderer{
			ToneMapping:   "cineon",
			Exposure:      0.9,
			MaxPixelRatio: 2,
		},
		Text: Text{
			Content:        "But first\nCoffee!!",
			Size:           0.5,
			Depth:          0.2,
			CurveSegments:  12,
			BevelEnabled:   true,
			BevelThickness: 0.03,
			BevelSize:      0.02,
			BevelOffset:    0,
			BevelSegments:  5,
			MergeTolerance: 1e-3,
			Position:       [3]float32{-3.5, 4, 0},
			RotationY:      math.Pi / 3,
		},
		Model: Model{
			RotationY: -0.5,
			PositionY: -0.6,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads path over the defaults. A missing file is not an error when
// the path is empty.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := Decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Decode overlays TOML data onto cfg and validates the result.
func Decode(data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return fmt.Errorf("line %d column %d: %w", row, col, err)
		}
		return err
	}
	return cfg.Validate()
}

// Encode renders cfg as TOML, used by -print-config.
func Encode(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Camera.MinPolar > c.Camera.MaxPolar {
		errs = append(errs, fmt.Errorf("camera polar range [%g, %g] is inverted", c.Camera.MinPolar, c.Camera.MaxPolar))
	}
	if c.Camera.MinDist > c.Camera.MaxDist || c.Camera.MinDist < 0 {
		errs = append(errs, fmt.Errorf("camera distance range [%g, %g] is invalid", c.Camera.MinDist, c.Camera.MaxDist))
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		errs = append(errs, fmt.Errorf("camera clip range [%g, %g] is invalid", c.Camera.Near, c.Camera.Far))
	}
	if c.Loading.FadeDuration < 0 || c.Loading.FadeDelay < 0 || c.Loading.RevealDelay < 0 {
		errs = append(errs, errors.New("loading delays must not be negative"))
	}
	if c.Loading.Workers <= 0 {
		errs = append(errs, fmt.Errorf("loading workers %d must be positive", c.Loading.Workers))
	}
	if c.Renderer.MaxPixelRatio <= 0 {
		errs = append(errs, fmt.Errorf("max pixel ratio %g must be positive", c.Renderer.MaxPixelRatio))
	}
	if c.Text.MergeTolerance <= 0 {
		errs = append(errs, fmt.Errorf("text merge tolerance %g must be positive", c.Text.MergeTolerance))
	}
	return errors.Join(errs...)
}
