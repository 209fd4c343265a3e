package domain

import "time"

type Source string

const (
	SourceInternet Source = "internet"
	SourceWritten  Source = "written"
	SourceOthers   Source = "others"
)

type RegulationYear string

const (
	Regulation2019  RegulationYear = "2019"
	Regulation2023  RegulationYear = "2023"
	RegulationOther RegulationYear = "other"
)

type MaterialType string

const (
	TypeNotes         MaterialType = "notes"
	TypeQuestionPaper MaterialType = "question-paper"
	TypeSyllabus      MaterialType = "syllabus"
	TypeReferenceBook MaterialType = "reference-book"
	TypeOther         MaterialType = "other"
)

type VerificationStatus string

const (
	StatusPending  VerificationStatus = "pending"
	StatusApproved VerificationStatus = "approved"
	StatusRejected VerificationStatus = "rejected"
)

type VoteType string

const (
	Upvote   VoteType = "upvote"
	Downvote VoteType = "downvote"
)

type RequestStatus string

const (
	RequestOpen      RequestStatus = "open"
	RequestFulfilled RequestStatus = "fulfilled"
	RequestClosed    RequestStatus = "closed"
)

type NotificationType string

const (
	NotificationApproved NotificationType = "approved"
	NotificationRejected NotificationType = "rejected"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Vote struct {
	UserID   string   `json:"user"`
	VoteType VoteType `json:"voteType"`
}

type Report struct {
	ReportedBy string    `json:"reportedBy"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Material is an uploaded file and everything members attached to it.
// Votes, Favorites and Reports have no life outside their material.
type Material struct {
	ID                 string             `json:"id"`
	Title              string             `json:"title"`
	Subject            string             `json:"subject"`
	Description        string             `json:"description"`
	Source             Source             `json:"source"`
	RegulationYear     RegulationYear     `json:"regulationYear"`
	MaterialType       MaterialType       `json:"materialType"`
	FileHash           string             `json:"fileHash"`
	FileKey            string             `json:"-"`
	FileURL            string             `json:"fileUrl"`
	OriginalFilename   string             `json:"originalFilename"`
	ContentType        string             `json:"contentType"`
	SizeBytes          int64              `json:"sizeBytes"`
	UploadedBy         string             `json:"uploadedBy"`
	UploaderName       string             `json:"uploaderName,omitempty"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
	RejectionReason    string             `json:"rejectionReason,omitempty"`
	Views              int64              `json:"views"`
	TrustScore         int                `json:"trustScore"`
	Votes              []Vote             `json:"votes"`
	Favorites          []string           `json:"favorites"`
	Reports            []Report           `json:"reports"`
	LinkedRequest      *string            `json:"linkedRequest"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// OwnedBy reports whether userID uploaded the material.
func (m *Material) OwnedBy(userID string) bool {
	return m.UploadedBy == userID
}

// VoteBy returns the vote cast by userID, if any.
func (m *Material) VoteBy(userID string) (Vote, bool) {
	for _, v := range m.Votes {
		if v.UserID == userID {
			return v, true
		}
	}
	return Vote{}, false
}

// ReportedBy reports whether userID already reported the material.
func (m *Material) ReportedBy(userID string) bool {
	for _, r := range m.Reports {
		if r.ReportedBy == userID {
			return true
		}
	}
	return false
}

// FavoritedBy reports whether userID has the material in their favorites.
func (m *Material) FavoritedBy(userID string) bool {
	for _, id := range m.Favorites {
		if id == userID {
			return true
		}
	}
	return false
}

// TrustScore is upvotes minus downvotes over the full vote list.
func TrustScore(votes []Vote) int {
	score := 0
	for _, v := range votes {
		switch v.VoteType {
		case Upvote:
			score++
		case Downvote:
			score--
		}
	}
	return score
}

type Request struct {
	ID             string         `json:"id"`
	Subject        string         `json:"subject"`
	Description    string         `json:"description"`
	MaterialType   MaterialType   `json:"materialType"`
	RegulationYear RegulationYear `json:"regulationYear"`
	RequestedBy    string         `json:"requestedBy"`
	RequesterName  string         `json:"requesterName,omitempty"`
	Status         RequestStatus  `json:"status"`
	FulfilledBy    *string        `json:"fulfilledBy"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Notification is an inbox entry. MaterialTitle is a snapshot so the entry
// stays readable after the material is gone.
type Notification struct {
	ID            string           `json:"id"`
	Recipient     string           `json:"recipient"`
	Type          NotificationType `json:"type"`
	MaterialID    string           `json:"materialId"`
	MaterialTitle string           `json:"materialTitle"`
	ActionBy      string           `json:"actionBy"`
	ActionByName  string           `json:"actionByName,omitempty"`
	Reason        string           `json:"reason"`
	Read          bool             `json:"read"`
	CreatedAt     time.Time        `json:"createdAt"`
}

type PushSubscription struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Principal is the authenticated caller of a workflow operation.
type Principal struct {
	UserID string
	Role   Role
}

// CanModerate reports whether the caller holds moderation privilege.
func (p Principal) CanModerate() bool {
	return HasModerationPrivilege(p.Role)
}
