package uploader

type Status string

const (
	StatusIdle           Status = "idle"
	StatusCreatingUpload Status = "creating_upload"
	StatusUploading      Status = "uploading"
	StatusProcessing     Status = "processing"
	StatusReady          Status = "ready"
	StatusError          Status = "error"
)

// Busy reports whether an attempt is in flight.
func (s Status) Busy() bool {
	return s == StatusCreatingUpload || s == StatusUploading || s == StatusProcessing
}

// UploadState is a snapshot of the manager. Err is set only in the error
// state and is always an *apperr.Error.
type UploadState struct {
	Status    Status
	Progress  int
	SessionID string
	VideoID   string
	Err       error
}

// Progress checkpoints. Transfer progress is mapped between
// progressTransferStart and progressTransferEnd.
const (
	progressTransferStart = 10
	progressTransferEnd   = 80
	progressRegistering   = 85
	progressDone          = 100
)
