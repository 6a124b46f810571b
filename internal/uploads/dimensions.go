package uploads

import (
	"bytes"
	"image"

	// Регистрация декодеров для определения размеров изображения.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"
)

// ProbeDimensions пытается определить натуральные размеры изображения.
// Определение — лучшее из возможного: при неизвестном формате размеры
// просто опускаются, загрузка из-за этого никогда не блокируется.
func ProbeDimensions(data []byte) (width, height int, ok bool) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}
