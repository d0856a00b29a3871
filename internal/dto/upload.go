package dto

// ImageUpload is one multipart image received on POST /api/uploads.
type ImageUpload struct {
	Filename    string
	ContentType string
	Destination string
	Data        []byte
}

type UploadResponse struct {
	URL string `json:"url"`
}
