package reviews

import (
	"context"
	"fmt"
	"testing"

	"github.com/partsinc/parts-server/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	reviews []domain.Review
}

func (m *mockRepository) CreateReview(_ context.Context, review *domain.Review) error {
	review.ID = fmt.Sprintf("review-%d", len(m.reviews)+1)
	m.reviews = append(m.reviews, *review)
	return nil
}

func (m *mockRepository) ListReviews(_ context.Context) ([]domain.Review, error) {
	result := make([]domain.Review, len(m.reviews))
	copy(result, m.reviews)
	return result, nil
}

func TestCreateReview(t *testing.T) {
	repo := &mockRepository{}
	s := NewService(repo)

	review, err := s.CreateReview(context.Background(), "Buyer@Example.com", CreateReviewInput{Name: "Buyer", Rating: 5, Text: "Great parts"})
	require.NoError(t, err)

	assert.Equal(t, "review-1", review.ID)
	assert.Equal(t, "buyer@example.com", review.Email)
	assert.Len(t, repo.reviews, 1)
}

func TestCreateReview_Validation(t *testing.T) {
	tests := []struct {
		name    string
		author  string
		rating  int
		wantErr error
	}{
		{name: "rating too low", author: "a@x.com", rating: 0, wantErr: ErrInvalidRating},
		{name: "rating too high", author: "a@x.com", rating: 6, wantErr: ErrInvalidRating},
		{name: "no author", author: "", rating: 3, wantErr: ErrMissingAuthor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepository{}
			s := NewService(repo)

			_, err := s.CreateReview(context.Background(), tt.author, CreateReviewInput{Rating: tt.rating, Text: "x"})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, repo.reviews)
		})
	}
}

func TestListReviews_InsertionOrder(t *testing.T) {
	repo := &mockRepository{}
	s := NewService(repo)

	for i := 1; i <= 3; i++ {
		_, err := s.CreateReview(context.Background(), "a@x.com", CreateReviewInput{Rating: i, Text: "x"})
		require.NoError(t, err)
	}

	list, err := s.ListReviews(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{list[0].Rating, list[1].Rating, list[2].Rating})
}
