package domain

// FrameMessage is the wire payload published per ingested frame and consumed
// by both the identification and recording pipelines. Field names are part of
// the broker contract.
type FrameMessage struct {
	CameraID  int64   `json:"camera_id"`
	UserID    int64   `json:"user_id"`
	Timestamp float64 `json:"timestamp"`
	Frame     string  `json:"frame"`
	FPS       float64 `json:"fps"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
}
