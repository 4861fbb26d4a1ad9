package camera

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/gekko3d/depthcloud/cloud"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

var ErrNoFrames = errors.New("camera: no recorded frames")

// Replay plays back a recording of color and depth images.
//
// A recording is a directory holding color_<n> and depth_<n> images with a
// shared suffix, e.g. color_000001.png and depth_000001.tiff. Color may be
// PNG, BMP or TIFF. Depth is single channel, 16 bit for full precision, with
// zero marking missing depth.
type Replay struct {
	name       string
	fsys       fs.FS
	pairs      []framePair
	intrinsics *Intrinsics
	depthScale float32
	interval   time.Duration
	loop       bool

	frame   *frame
	xyzTex  cloud.StreamTexture
	colTex  cloud.StreamTexture
	next    int
	pending time.Duration
	frames  uint64
	closed  bool
}

var _ Device = (*Replay)(nil)

type framePair struct {
	key   string
	color string
	depth string
}

type ReplayOption func(*Replay)

// WithDepthScale sets meters per depth unit. The default is 0.001 (millimeters).
func WithDepthScale(metersPerUnit float32) ReplayOption {
	return func(r *Replay) { r.depthScale = metersPerUnit }
}

// WithFrameRate paces playback. Zero advances one frame per Grab.
func WithFrameRate(fps float64) ReplayOption {
	return func(r *Replay) {
		if fps > 0 {
			r.interval = time.Duration(float64(time.Second) / fps)
		} else {
			r.interval = 0
		}
	}
}

func WithLoop(loop bool) ReplayOption {
	return func(r *Replay) { r.loop = loop }
}

func WithReplayIntrinsics(in Intrinsics) ReplayOption {
	return func(r *Replay) { r.intrinsics = &in }
}

func WithReplayName(name string) ReplayOption {
	return func(r *Replay) { r.name = name }
}

// OpenReplay opens the recording in dir.
func OpenReplay(dev cloud.StreamDevice, dir string, opts ...ReplayOption) (*Replay, error) {
	return NewReplay(dev, os.DirFS(dir), opts...)
}

// NewReplay reads the recording at the root of fsys. The first frame fixes
// the image size.
func NewReplay(dev cloud.StreamDevice, fsys fs.FS, opts ...ReplayOption) (*Replay, error) {
	r := &Replay{
		name:       "replay",
		fsys:       fsys,
		depthScale: 0.001,
		loop:       true,
	}
	for _, opt := range opts {
		opt(r)
	}

	pairs, err := listPairs(fsys)
	if err != nil {
		return nil, err
	}
	r.pairs = pairs

	first, err := decodeImage(fsys, pairs[0].color)
	if err != nil {
		return nil, err
	}
	b := first.Bounds()
	if r.intrinsics == nil {
		in := DefaultIntrinsics(b.Dx(), b.Dy())
		r.intrinsics = &in
	}

	xyz, col, err := textures(dev, r.name, b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	r.frame = newFrame(b.Dx(), b.Dy())
	r.xyzTex = xyz
	r.colTex = col
	return r, nil
}

func listPairs(fsys fs.FS) ([]framePair, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("camera: read recording: %w", err)
	}
	colors := make(map[string]string)
	depths := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		key := strings.TrimSuffix(name, path.Ext(name))
		switch {
		case strings.HasPrefix(key, "color_"):
			colors[strings.TrimPrefix(key, "color_")] = name
		case strings.HasPrefix(key, "depth_"):
			depths[strings.TrimPrefix(key, "depth_")] = name
		}
	}

	var pairs []framePair
	for key, c := range colors {
		if d, ok := depths[key]; ok {
			pairs = append(pairs, framePair{key: key, color: c, depth: d})
		}
	}
	if len(pairs) == 0 {
		return nil, ErrNoFrames
	}
	slices.SortFunc(pairs, func(a, b framePair) int { return strings.Compare(a.key, b.key) })
	return pairs, nil
}

func decodeImage(fsys fs.FS, name string) (image.Image, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("camera: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("camera: decode %s: %w", name, err)
	}
	return img, nil
}

func (r *Replay) IsReady() bool                  { return !r.closed && r.frames > 0 }
func (r *Replay) ImageWidth() int                { return r.frame.width }
func (r *Replay) ImageHeight() int               { return r.frame.height }
func (r *Replay) PositionTexture() cloud.Texture { return r.xyzTex }
func (r *Replay) ColorTexture() cloud.Texture    { return r.colTex }
func (r *Replay) Frames() uint64                 { return r.frames }
func (r *Replay) Len() int                       { return len(r.pairs) }

// Grab uploads the next recorded frame once the frame interval has elapsed.
// At the end of a non-looping recording the last frame stays bound.
func (r *Replay) Grab(dt time.Duration) error {
	if r.closed {
		return ErrClosed
	}
	if r.frames > 0 && r.interval > 0 {
		r.pending += dt
		if r.pending < r.interval {
			return nil
		}
		r.pending -= r.interval
	}
	if r.next >= len(r.pairs) {
		if !r.loop {
			return nil
		}
		r.next = 0
	}

	pair := r.pairs[r.next]
	if err := r.load(pair); err != nil {
		return err
	}
	r.next++
	r.xyzTex.Write(r.frame.xyz)
	r.colTex.Write(r.frame.color)
	r.frames++
	return nil
}

func (r *Replay) load(pair framePair) error {
	col, err := decodeImage(r.fsys, pair.color)
	if err != nil {
		return err
	}
	depth, err := decodeImage(r.fsys, pair.depth)
	if err != nil {
		return err
	}
	f := r.frame
	for _, img := range []image.Image{col, depth} {
		if b := img.Bounds(); b.Dx() != f.width || b.Dy() != f.height {
			return fmt.Errorf("camera: frame %s: size %dx%d, want %dx%d", pair.key, b.Dx(), b.Dy(), f.width, f.height)
		}
	}

	cb, db := col.Bounds(), depth.Bounds()
	for v := 0; v < f.height; v++ {
		for u := 0; u < f.width; u++ {
			i := v*f.width + u
			cr, cg, cbl, _ := col.At(cb.Min.X+u, cb.Min.Y+v).RGBA()
			f.setColor(i, uint8(cr>>8), uint8(cg>>8), uint8(cbl>>8))

			raw := color.Gray16Model.Convert(depth.At(db.Min.X+u, db.Min.Y+v)).(color.Gray16).Y
			if raw == 0 {
				f.setInvalid(i)
				continue
			}
			x, y, z := r.intrinsics.Unproject(u, v, float32(raw)*r.depthScale)
			f.setPoint(i, x, y, z)
		}
	}
	return nil
}

func (r *Replay) Close() error {
	r.closed = true
	return nil
}
