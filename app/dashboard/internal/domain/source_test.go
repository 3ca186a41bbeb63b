package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromCompleted(t *testing.T) {
	var src CompletedSource
	require.NoError(t, json.Unmarshal([]byte(`{
		"topic": "economy",
		"start_date": "2025-01-01",
		"end_date": "2025-01-31",
		"filename": "economy.pdf",
		"public_url": "https://cdn.example.com/economy.pdf",
		"created_at": "2025-02-01T10:00:00",
		"keywords": ["inflation", "Economic Policy"],
		"summary": {"summary": {"scope_and_sentiment": {"title": "Scope", "points": ["mostly neutral"]}}}
	}`), &src))

	r := FromCompleted(&src)
	assert.Equal(t, StatusCompleted, r.Status)
	assert.Equal(t, 100, r.Progress)
	assert.Equal(t, "https://cdn.example.com/economy.pdf", r.URL)
	assert.Equal(t, []string{"inflation", "Economic Policy"}, r.Keywords)
	assert.Empty(t, r.JobID)
	require.NotNil(t, r.Summary)
	assert.Equal(t, "Scope", r.Summary.Summary.ScopeAndSentiment.Title)
}

func TestFromCompleted_NoKeywords(t *testing.T) {
	r := FromCompleted(&CompletedSource{Topic: "politics"})
	assert.NotNil(t, r.Keywords)
	assert.Empty(t, r.Keywords)
}

func TestFromJob(t *testing.T) {
	progress := 42.0
	tests := []struct {
		name         string
		src          JobSource
		wantStatus   string
		wantProgress int
		wantKeywords []string
	}{
		{
			name:         "defaults",
			src:          JobSource{Topic: "politics", ID: "job-1"},
			wantStatus:   StatusProcessing,
			wantProgress: 0,
			wantKeywords: []string{},
		},
		{
			name:         "empty sub keyword",
			src:          JobSource{Topic: "politics", ID: "job-2", SubKeyword: ""},
			wantStatus:   StatusProcessing,
			wantKeywords: []string{},
		},
		{
			name:         "failed with keywords",
			src:          JobSource{Topic: "politics", ID: "job-3", Status: StatusFailed, Progress: &progress, SubKeyword: "election,policy"},
			wantStatus:   StatusFailed,
			wantProgress: 42,
			wantKeywords: []string{"election", "policy"},
		},
		{
			name:         "unknown status passes through",
			src:          JobSource{Topic: "politics", Status: "queued"},
			wantStatus:   "queued",
			wantKeywords: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FromJob(&tt.src)
			assert.Equal(t, tt.wantStatus, r.Status)
			assert.Equal(t, tt.wantProgress, r.Progress)
			assert.Equal(t, tt.wantKeywords, r.Keywords)
			assert.Equal(t, tt.src.ID, r.JobID)
			assert.Empty(t, r.URL)
		})
	}
}

func TestHasPending(t *testing.T) {
	assert.False(t, HasPending(nil))
	assert.False(t, HasPending([]*Report{{Status: StatusCompleted}, {Status: StatusFailed}}))
	assert.True(t, HasPending([]*Report{{Status: StatusCompleted}, {Status: StatusProcessing}}))
}

func TestErrors(t *testing.T) {
	err := ValidationError("email", "Please enter a valid email address")
	assert.True(t, IsValidation(err))
	assert.Equal(t, "email", ErrorField(err))

	up := UpstreamError(500, "boom")
	assert.Equal(t, 500, UpstreamStatus(up))
	assert.False(t, IsValidation(up))

	assert.Equal(t, MsgFetchReports, FetchError("").Message)
}

func TestUser_UnmarshalID(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantID  string
		wantErr bool
	}{
		{name: "number", body: `{"email":"a@b.co","id":42}`, wantID: "42"},
		{name: "string", body: `{"email":"a@b.co","id":"u-1"}`, wantID: "u-1"},
		{name: "null", body: `{"email":"a@b.co","id":null}`, wantID: ""},
		{name: "missing", body: `{"email":"a@b.co"}`, wantID: ""},
		{name: "bool", body: `{"email":"a@b.co","id":true}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var u User
			err := json.Unmarshal([]byte(tt.body), &u)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, u.ID)
			assert.Equal(t, "a@b.co", u.Email)
		})
	}
}

func TestJobSource_LenientFields(t *testing.T) {
	var src JobSource
	require.NoError(t, json.Unmarshal([]byte(`{"topic":"t","status":"processing","progress":" 45 ","id":17,"sub_keyword":"a,b"}`), &src))
	assert.Equal(t, "17", src.ID)
	require.NotNil(t, src.Progress)
	assert.Equal(t, 45.0, *src.Progress)
	assert.Equal(t, "a,b", src.SubKeyword)

	src = JobSource{}
	require.NoError(t, json.Unmarshal([]byte(`{"topic":"t","progress":""}`), &src))
	assert.Nil(t, src.Progress)

	assert.Error(t, json.Unmarshal([]byte(`{"topic":"t","progress":[1]}`), &JobSource{}))
}
