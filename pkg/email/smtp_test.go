package email

import (
	"testing"

	"course_study_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRetakeApproved(t *testing.T) {
	subject, body, err := Render(KindRetakeApproved, map[string]string{
		"TestTitle": "Unit 1",
		"Note":      "good luck",
		"Link":      "https://example.com/tests/1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Retake approved: Unit 1", subject)
	assert.Contains(t, body, "Unit 1")
	assert.Contains(t, body, "good luck")
	assert.Contains(t, body, "https://example.com/tests/1")
}

func TestRenderEscapesHTML(t *testing.T) {
	_, body, err := Render(KindRetakeRequested, map[string]string{
		"StudentName": "<script>x</script>",
		"TestTitle":   "T",
	})
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
}

func TestRenderAllKinds(t *testing.T) {
	for kind := range contents {
		_, _, err := Render(kind, map[string]string{})
		assert.NoError(t, err, kind)
	}
}

func TestRenderUnknownKind(t *testing.T) {
	_, _, err := Render(Kind("nope"), nil)
	assert.Error(t, err)
}

func TestBuildMessageHeaders(t *testing.T) {
	c := NewSMTPClient(&config.SMTPConfig{From: "noreply@example.com"})
	msg := c.buildMessage(EmailData{To: []string{"a@example.com", "b@example.com"}, Subject: "Hi", Body: "<p>x</p>"})
	assert.Contains(t, msg, "From: noreply@example.com\r\n")
	assert.Contains(t, msg, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, msg, "Subject: Hi\r\n")
	assert.Contains(t, msg, "Content-Type: text/html; charset=UTF-8\r\n")
}
