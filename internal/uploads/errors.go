package uploads

import "errors"

var (
	// ErrMissingFile возвращается, когда в запросе на загрузку нет файла.
	ErrMissingFile = errors.New("missing file")
	// ErrFileTooLarge возвращается до любого сетевого вызова,
	// когда файл превышает ограничение размера.
	ErrFileTooLarge = errors.New("images must be 5MB or smaller")
	// ErrUploadFailed оборачивает сбой сохранения вложения.
	ErrUploadFailed = errors.New("unable to upload image right now")
)
