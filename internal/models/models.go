package models

import "time"

// MediaRef points at an asset hosted by the object store.
type MediaRef struct {
	URL        string `json:"url"`
	SecureURL  string `json:"secureUrl"`
	ProviderID string `json:"publicId"`
}

// IsZero reports whether the reference points at nothing.
func (m MediaRef) IsZero() bool {
	return m.ProviderID == "" && m.URL == ""
}

// User represents an account within the VidTube platform. The password hash and
// the active refresh token never leave the service.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Password     string    `json:"-"`
	Avatar       MediaRef  `json:"avatar"`
	CoverImage   MediaRef  `json:"coverImage"`
	RefreshToken string    `json:"-"`
	WatchHistory []string  `json:"watchHistory"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Video is a published upload owned by exactly one user.
type Video struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner"`
	VideoFile   MediaRef  `json:"videoFile"`
	Thumbnail   MediaRef  `json:"thumbnail"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Duration    float64   `json:"duration"`
	Views       int64     `json:"views"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Subscription is the edge between a subscriber and a channel.
type Subscription struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriber"`
	ChannelID    string    `json:"channel"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Like references exactly one of a video, a comment or a tweet.
type Like struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video,omitempty"`
	CommentID string    `json:"comment,omitempty"`
	TweetID   string    `json:"tweet,omitempty"`
	LikedBy   string    `json:"likedBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comment is a remark left on a video.
type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video"`
	OwnerID   string    `json:"owner"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// OwnerSummary is the public projection of a user embedded in video views.
type OwnerSummary struct {
	ID       string   `json:"id"`
	FullName string   `json:"fullName"`
	Username string   `json:"username"`
	Avatar   MediaRef `json:"avatar"`
}

// ChannelProfile is the public view of a user in its capacity as a channel.
type ChannelProfile struct {
	FullName                  string   `json:"fullName"`
	Username                  string   `json:"username"`
	SubscribersCount          int64    `json:"subscribersCount"`
	ChannelsSubscribedToCount int64    `json:"channelsSubscribedToCount"`
	IsSubscribed              bool     `json:"isSubscribed"`
	Avatar                    MediaRef `json:"avatar"`
	CoverImage                MediaRef `json:"coverImage"`
}

// WatchedVideo is one resolved entry of a user's watch history.
type WatchedVideo struct {
	Video
	Owner OwnerSummary `json:"owner"`
}

// VideoDetails is the denormalized single-video view.
type VideoDetails struct {
	Video            Video        `json:"video"`
	Owner            OwnerSummary `json:"owner"`
	SubscribersCount int64        `json:"subscribersCount"`
	LikesCount       int64        `json:"likesCount"`
	CommentsCount    int64        `json:"commentsCount"`
	IsSubscribed     bool         `json:"isSubscribed"`
}

// VideoPage is one page of a video listing.
type VideoPage struct {
	Videos      []WatchedVideo `json:"docs"`
	TotalDocs   int64          `json:"totalDocs"`
	Page        int            `json:"page"`
	Limit       int            `json:"limit"`
	TotalPages  int            `json:"totalPages"`
	HasNextPage bool           `json:"hasNextPage"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
