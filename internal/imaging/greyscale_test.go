package imaging

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestToGreyscale_ChannelsEqual(t *testing.T) {
	src := newTestBuffer(t, createPatternImage(40, 40), 150)

	grey, err := ToGreyscale(src)
	if err != nil {
		t.Fatalf("ToGreyscale failed: %v", err)
	}
	if grey.Size() != src.Size() {
		t.Errorf("Size: got %s, want %s", grey.Size(), src.Size())
	}
	if grey.Resolution() != src.Resolution() {
		t.Errorf("Resolution: got %+v, want %+v", grey.Resolution(), src.Resolution())
	}

	img := grey.Image()
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if r != g || g != bl {
				t.Fatalf("pixel (%d,%d): channels differ (%d,%d,%d)", x, y, r, g, bl)
			}
			if a != 0xffff {
				t.Fatalf("pixel (%d,%d): alpha changed to %d", x, y, a)
			}
		}
	}

	// Source is untouched.
	if r, g, _, _ := src.Image().At(0, 0).RGBA(); r>>8 != 255 || g != 0 {
		t.Error("source buffer was modified")
	}
}

func TestToGreyscale_Weights(t *testing.T) {
	tests := []struct {
		name string
		c    color.NRGBA
		want uint8
	}{
		{"red", color.NRGBA{255, 0, 0, 255}, 77},
		{"green", color.NRGBA{0, 255, 0, 255}, 150},
		{"blue", color.NRGBA{0, 0, 255, 255}, 28},
		{"white", color.NRGBA{255, 255, 255, 255}, 255},
		{"black", color.NRGBA{0, 0, 0, 255}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newTestBuffer(t, createInMemoryImage(2, 2, tt.c), 96)
			grey, err := ToGreyscale(src)
			if err != nil {
				t.Fatalf("ToGreyscale failed: %v", err)
			}
			r, _, _, _ := grey.Image().At(1, 1).RGBA()
			if d := int(r>>8) - int(tt.want); d < -1 || d > 1 {
				t.Errorf("got %d, want %d", r>>8, tt.want)
			}
		})
	}
}

func TestToGreyscale_PreservesAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < 16; i++ {
		src.SetNRGBA(i%4, i/4, color.NRGBA{200, 100, 50, uint8(i * 16)})
	}

	grey, err := ToGreyscale(newTestBuffer(t, src, 96))
	if err != nil {
		t.Fatalf("ToGreyscale failed: %v", err)
	}

	for i := 0; i < 16; i++ {
		x, y := i%4, i/4
		c := color.NRGBAModel.Convert(grey.Image().At(x, y)).(color.NRGBA)
		if c.A != uint8(i*16) {
			t.Errorf("pixel (%d,%d): alpha %d, want %d", x, y, c.A, i*16)
		}
		if c.R != c.G || c.G != c.B {
			t.Errorf("pixel (%d,%d): channels differ %v", x, y, c)
		}
	}
	if !grey.PixelFormat().HasAlpha() {
		t.Errorf("PixelFormat: got %s, want a format with alpha", grey.PixelFormat())
	}
}

func TestColorMatrix_Transform(t *testing.T) {
	got := greyscaleMatrix.Transform(color.NRGBA{100, 100, 100, 42})
	if got.R != 100 || got.G != 100 || got.B != 100 || got.A != 42 {
		t.Errorf("Transform of grey: got %v, want {100 100 100 42}", got)
	}
}

func TestColorMatrix_ValueSemantics(t *testing.T) {
	identity := ColorMatrix{
		{1, 0, 0, 0, 0},
		{0, 1, 0, 0, 0},
		{0, 0, 1, 0, 0},
		{0, 0, 0, 1, 0},
		{0, 0, 0, 0, 1},
	}.Transform(color.NRGBA{10, 20, 30, 40})
	if identity != (color.NRGBA{10, 20, 30, 40}) {
		t.Errorf("identity Transform: got %v", identity)
	}

	m := greyscaleMatrix
	m[3][3] = 0
	m[0][0] = 1
	if greyscaleMatrix[3][3] != 1 || greyscaleMatrix[0][0] != .30 {
		t.Fatal("copying the greyscale matrix must not change it")
	}

	src := newTestBuffer(t, createInMemoryImage(2, 2, color.NRGBA{R: 200, A: 255}), 96)
	grey, err := ToGreyscale(src)
	if err != nil {
		t.Fatalf("ToGreyscale failed: %v", err)
	}
	c := color.NRGBAModel.Convert(grey.Image().At(0, 0)).(color.NRGBA)
	if c.A != 255 || c.R < 59 || c.R > 61 {
		t.Errorf("greyscale of red: got %v, want R=G=B=60 A=255", c)
	}
}

func TestToGreyscale_Nil(t *testing.T) {
	if _, err := ToGreyscale(nil); !errors.Is(err, ErrArgument) {
		t.Errorf("expected ErrArgument, got %v", err)
	}
}
