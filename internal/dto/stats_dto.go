package dto

type StatsResponse struct {
	Documents     int64 `json:"documents"`
	Conversations int64 `json:"conversations"`
	Messages      int64 `json:"messages"`
}
