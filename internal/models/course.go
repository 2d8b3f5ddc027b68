package models

// CourseType separates the public catalog from auto-école courses.
type CourseType string

const (
	CoursePublic  CourseType = "PUBLIC"
	CoursePrivate CourseType = "PRIVATE"
)

// Course is a lesson document or video.
type Course struct {
	ID            int64      `json:"id"`
	Titre         string     `json:"titre"`
	Description   string     `json:"description"`
	CloudinaryURL string     `json:"cloudinaryUrl"`
	CourseType    CourseType `json:"courseType"`
	FileType      string     `json:"fileType"`
	Prix          float64    `json:"prix,omitempty"`
	EstGratuit    bool       `json:"estGratuit"`
	AutoEcoleID   int64      `json:"autoEcoleId,omitempty"`
}

// PaymentSession is returned by POST /courses/{id}/create-payment-session.
type PaymentSession struct {
	SessionURL string `json:"sessionUrl"`
}
