package models

// LocalPostRequest is the body of a create-local-post call
type LocalPostRequest struct {
	LanguageCode string           `json:"languageCode"`
	Summary      string           `json:"summary"`
	TopicType    string           `json:"topicType"`
	Media        []LocalPostMedia `json:"media,omitempty"`
	CallToAction *LocalPostCTA    `json:"callToAction,omitempty"`
}

type LocalPostMedia struct {
	MediaFormat string `json:"mediaFormat"`
	SourceURL   string `json:"sourceUrl"`
}

type LocalPostCTA struct {
	ActionType string `json:"actionType"`
	URL        string `json:"url"`
}

// LocalPost is the platform's view of a created post
type LocalPost struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	SearchURL string `json:"searchUrl"`
}

const (
	LocalPostStateLive     = "LIVE"
	LocalPostStateRejected = "REJECTED"
)

// ReviewsPage is one page of the list-reviews response
type ReviewsPage struct {
	Reviews          []PlatformReview `json:"reviews"`
	NextPageToken    string           `json:"nextPageToken"`
	TotalReviewCount int              `json:"totalReviewCount"`
}

type PlatformReview struct {
	ReviewID string `json:"reviewId"`
	Reviewer struct {
		DisplayName string `json:"displayName"`
	} `json:"reviewer"`
	StarRating  string `json:"starRating"`
	Comment     string `json:"comment"`
	CreateTime  string `json:"createTime"`
	UpdateTime  string `json:"updateTime"`
	ReviewReply *struct {
		Comment string `json:"comment"`
	} `json:"reviewReply,omitempty"`
}

var starRatings = map[string]int{
	"ONE":   1,
	"TWO":   2,
	"THREE": 3,
	"FOUR":  4,
	"FIVE":  5,
}

// Stars converts the platform's enum rating; unknown values map to 0
func (r PlatformReview) Stars() int {
	return starRatings[r.StarRating]
}
