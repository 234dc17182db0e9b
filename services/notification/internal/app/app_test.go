package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"tell-all/pkg/jwt"
	"tell-all/pkg/logger"
	"tell-all/pkg/mailer"
	"tell-all/pkg/queue"
	"tell-all/services/notification/internal/repo/cache"
	"tell-all/services/notification/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []mailer.Message
}

func (s *recordingSender) Send(_ context.Context, msg mailer.Message) error {
	s.sent = append(s.sent, msg)
	return nil
}

func newTestUseCase(sender mailer.Sender) usecase.MailUseCase {
	return usecase.NewMailUseCase(sender, cache.NewMemoryStatsRepository(), nil, logger.NewWithWriters(io.Discard, io.Discard))
}

func TestRouter_StatsRequiresAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtService := jwt.NewService("test-secret")
	router := NewRouter(Deps{
		MailUseCase: newTestUseCase(&recordingSender{}),
		JWT:         jwtService,
		Log:         logger.NewWithWriters(io.Discard, io.Discard),
	})

	userToken, err := jwtService.GenerateToken("u1", jwt.RoleUser)
	require.NoError(t, err)
	adminToken, err := jwtService.GenerateToken("a1", jwt.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"user", userToken, http.StatusForbidden},
		{"admin", adminToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/api/v1/mail/stats", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestMailHandler_DeliversQueuedTask(t *testing.T) {
	sender := &recordingSender{}
	handle := MailHandler(newTestUseCase(sender), logger.NewWithWriters(io.Discard, io.Discard))

	outcome := queue.Dispatch([]byte(`{"type":"publication","recipients":["a@tell-all.com","b@tell-all.com"],"subject":"Published premium posts","body":"Hello, your pending premium posts have been published"}`), handle)

	assert.Equal(t, queue.Ack, outcome)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"a@tell-all.com", "b@tell-all.com"}, sender.sent[0].To)
	assert.Equal(t, "Published premium posts", sender.sent[0].Subject)
}
