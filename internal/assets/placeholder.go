package assets

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
)

// placeholderSize is the edge length of the generated placeholder square.
const placeholderSize = 96

var placeholderOnce struct {
	sync.Once
	data []byte
}

// Placeholder returns the PNG shown when a locator cannot be dereferenced.
// The image is generated once: a neutral gray tile with a darker border, so
// missing thumbnails are visibly distinct without shipping a binary asset.
func Placeholder() []byte {
	placeholderOnce.Do(func() {
		img := image.NewRGBA(image.Rect(0, 0, placeholderSize, placeholderSize))
		fill := color.RGBA{R: 0x3a, G: 0x3a, B: 0x3e, A: 0xff}
		border := color.RGBA{R: 0x55, G: 0x55, B: 0x5a, A: 0xff}
		for y := 0; y < placeholderSize; y++ {
			for x := 0; x < placeholderSize; x++ {
				c := fill
				if x < 2 || y < 2 || x >= placeholderSize-2 || y >= placeholderSize-2 {
					c = border
				}
				img.SetRGBA(x, y, c)
			}
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			panic("assets: encoding placeholder: " + err.Error())
		}
		placeholderOnce.data = buf.Bytes()
	})
	return placeholderOnce.data
}
