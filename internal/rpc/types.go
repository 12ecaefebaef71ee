package rpc

import "github.com/jcdickinson/doclink/internal/filter"

// LoadRequest is the request body for POST /load.
type LoadRequest struct {
	// Project is the documentation root; empty means the last loaded project.
	Project string `json:"project,omitempty"`
}

// LoadResponse is the response body for POST /load.
type LoadResponse struct {
	Project ProjectInfo `json:"project"`
}

type ProjectInfo struct {
	Root     string `json:"root"`
	Entries  int    `json:"entries"`
	LoadedAt string `json:"loaded_at"`
	Cached   bool   `json:"cached,omitempty"`
}

// ListRequest is the request body for POST /list.
type ListRequest struct {
	Project  string          `json:"project,omitempty"`
	Criteria filter.Criteria `json:"criteria"`
}

// ListResponse is the response body for POST /list.
type ListResponse struct {
	Project ProjectInfo `json:"project"`
	// Pattern is the compiled filter source; empty when no criteria were given.
	Pattern string      `json:"pattern,omitempty"`
	Entries []EntryInfo `json:"entries"`
}

type EntryInfo struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Malformed   bool   `json:"malformed,omitempty"`
}

// LinkRequest is the request body for POST /link.
type LinkRequest struct {
	Project string `json:"project,omitempty"`
	Page    string `json:"page"`
	Text    string `json:"text,omitempty"`
	Format  string `json:"format,omitempty"`
}

// LinkResponse is the response body for POST /link.
type LinkResponse struct {
	Page   string `json:"page"`
	Name   string `json:"name"`
	Href   string `json:"href"`
	Text   string `json:"text"`
	Output string `json:"output"`
}

// ForgetRequest is the request body for POST /forget.
type ForgetRequest struct {
	Project string `json:"project"`
}

// ForgetResponse is the response body for POST /forget.
type ForgetResponse struct {
	Root string `json:"root"`
	// Registered reports whether the project was known to the registry.
	Registered bool `json:"registered"`
}

// StatusResponse is the response body for GET /status.
type StatusResponse struct {
	Last     *ProjectInfo    `json:"last,omitempty"`
	Projects []ProjectStatus `json:"projects"`
}

type ProjectStatus struct {
	Root       string `json:"root"`
	Entries    int    `json:"entries"`
	LoadedAt   string `json:"loaded_at,omitempty"`
	LastUsedAt string `json:"last_used_at"`
	Cached     bool   `json:"cached"`
}
