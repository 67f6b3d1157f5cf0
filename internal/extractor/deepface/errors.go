package deepface

import "errors"

var (
	ErrServiceUnavailable = errors.New("deepface service unavailable")
	ErrInvalidResponse    = errors.New("invalid response from deepface")
	ErrBadImage           = errors.New("deepface rejected the image")
)
