package practice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permisconnect/internal/session"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name    string
		answers []int
		want    float64
	}{
		{"all correct", []int{1, 0, 0, 1, 1}, 100},
		{"all wrong", []int{0, 1, 1, 0, 0}, 0},
		{"three of five", []int{1, 0, 0, 0, 0}, 60},
		{"skipped count as wrong", []int{1, Unanswered, 0}, 40},
		{"no answers", nil, 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := Score(tt.answers)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}

func TestScore_TooManyAnswers(t *testing.T) {
	_, err := Score([]int{1, 0, 0, 1, 1, 1})
	assert.Error(t, err)
}

func TestReview(t *testing.T) {
	res := Review([]int{2, 0})
	require.Len(t, res, len(Questions))

	assert.False(t, res[0].OK())
	assert.Equal(t, "70 km/h", res[0].AnswerText())
	assert.Equal(t, "50 km/h", res[0].CorrectText())
	assert.True(t, res[1].OK())
	assert.Equal(t, Unanswered, res[4].Answer)
	assert.Empty(t, res[4].AnswerText())
}

func TestFinish_PersistsScore(t *testing.T) {
	sess := session.New(&session.MemoryStore{}, nil)
	score, err := Finish(context.Background(), sess, []int{1, 0, 0, 1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 80, score, 0.0001)

	last, ok := sess.LastTestScore()
	require.True(t, ok)
	assert.InDelta(t, 80, last, 0.0001)
}
