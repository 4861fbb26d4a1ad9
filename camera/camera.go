// Package camera provides depth camera adapters that stream XYZ and color
// frames into point cloud textures.
package camera

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gekko3d/depthcloud/cloud"
)

var ErrClosed = errors.New("camera: closed")

// Device is a camera SDK whose frames are pulled by Grab.
type Device interface {
	cloud.CameraSDK
	// Grab acquires and uploads the next frame.
	Grab(dt time.Duration) error
	Close() error
}

// Intrinsics are pinhole parameters in pixels.
type Intrinsics struct {
	Fx float32 `yaml:"fx"`
	Fy float32 `yaml:"fy"`
	Cx float32 `yaml:"cx"`
	Cy float32 `yaml:"cy"`
}

// DefaultIntrinsics returns a 90 degree horizontal field of view centered on the image.
func DefaultIntrinsics(width, height int) Intrinsics {
	f := float32(width) / 2
	return Intrinsics{Fx: f, Fy: f, Cx: float32(width) / 2, Cy: float32(height) / 2}
}

// Unproject maps pixel (u, v) at depth z (meters) to camera space, Y up and
// looking down -Z.
func (in Intrinsics) Unproject(u, v int, z float32) (x, y, zOut float32) {
	px := float32(u) + 0.5
	py := float32(v) + 0.5
	x = (px - in.Cx) / in.Fx * z
	y = -(py - in.Cy) / in.Fy * z
	return x, y, -z
}

// frame holds the host side pixels of one XYZ/color pair.
type frame struct {
	width, height int
	xyz           []byte
	color         []byte
}

func newFrame(width, height int) *frame {
	return &frame{
		width:  width,
		height: height,
		xyz:    make([]byte, width*height*cloud.FormatARGBFloat.BytesPerPixel()),
		color:  make([]byte, width*height*cloud.FormatARGB32.BytesPerPixel()),
	}
}

var nan32 = float32(math.NaN())

func (f *frame) setPoint(i int, x, y, z float32) {
	o := i * 16
	binary.LittleEndian.PutUint32(f.xyz[o:], math.Float32bits(x))
	binary.LittleEndian.PutUint32(f.xyz[o+4:], math.Float32bits(y))
	binary.LittleEndian.PutUint32(f.xyz[o+8:], math.Float32bits(z))
	binary.LittleEndian.PutUint32(f.xyz[o+12:], math.Float32bits(1))
}

// setInvalid marks a pixel without depth.
func (f *frame) setInvalid(i int) {
	f.setPoint(i, nan32, nan32, nan32)
}

// setColor stores r, g, b in BGRA order.
func (f *frame) setColor(i int, r, g, b uint8) {
	o := i * 4
	f.color[o] = b
	f.color[o+1] = g
	f.color[o+2] = r
	f.color[o+3] = 0xff
}

// point decodes the XYZ sample at pixel i.
func (f *frame) point(i int) (x, y, z float32) {
	o := i * 16
	x = math.Float32frombits(binary.LittleEndian.Uint32(f.xyz[o:]))
	y = math.Float32frombits(binary.LittleEndian.Uint32(f.xyz[o+4:]))
	z = math.Float32frombits(binary.LittleEndian.Uint32(f.xyz[o+8:]))
	return x, y, z
}

// textures allocates the stream textures both adapters upload into.
func textures(dev cloud.StreamDevice, name string, width, height int) (xyz, color cloud.StreamTexture, err error) {
	if dev == nil {
		return nil, nil, fmt.Errorf("camera %q: no stream device", name)
	}
	xyz, err = dev.CreateStreamTexture(name+" XYZ", width, height, cloud.FormatARGBFloat)
	if err != nil {
		return nil, nil, fmt.Errorf("camera %q: %w", name, err)
	}
	color, err = dev.CreateStreamTexture(name+" Color", width, height, cloud.FormatARGB32)
	if err != nil {
		return nil, nil, fmt.Errorf("camera %q: %w", name, err)
	}
	return xyz, color, nil
}
