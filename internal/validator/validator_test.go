package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/stemsi/exstem-practice/internal/model"
)

func bindBody(t *testing.T, body string, dst interface{}) map[string]string {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return Bind(c, dst)
}

func TestBindDomainTags(t *testing.T) {
	gin.SetMode(gin.TestMode)
	Setup()

	tests := []struct {
		name  string
		body  string
		dst   func() interface{}
		field string
		want  string
	}{
		{
			name: "valid exam type",
			body: `{"type":"SIMULACRO"}`,
			dst:  func() interface{} { return &model.CreateDraftRequest{} },
		},
		{
			name:  "unknown exam type",
			body:  `{"type":"ORAL"}`,
			dst:   func() interface{} { return &model.CreateDraftRequest{} },
			field: "type",
			want:  "type must be one of THEORY_TOPIC, THEORY_MIXED, PRACTICAL, SIMULACRO",
		},
		{
			name:  "unknown part",
			body:  `{"part":"BOTH"}`,
			dst:   func() interface{} { return &model.SelectThemePartRequest{} },
			field: "part",
			want:  "part must be GENERAL or SPECIFIC",
		},
		{
			name:  "missing part",
			body:  `{}`,
			dst:   func() interface{} { return &model.SelectThemePartRequest{} },
			field: "part",
			want:  "part is a required field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := bindBody(t, tt.body, tt.dst())
			if tt.field == "" {
				assert.Nil(t, fields)
				return
			}
			assert.Equal(t, tt.want, fields[tt.field])
		})
	}
}

func TestTranslateErrorsFallsBackToDetail(t *testing.T) {
	Setup()
	fields := bindBody(t, `{"type":`, &model.CreateDraftRequest{})
	assert.Contains(t, fields, "detail")
}
