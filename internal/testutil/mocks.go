package testutil

import (
	"context"

	"songmeta/internal/models"
	"songmeta/internal/services"

	"github.com/stretchr/testify/mock"
)

// MockMatchRepository is a mock implementation of MatchRepository for testing
type MockMatchRepository struct {
	mock.Mock
}

func (m *MockMatchRepository) Save(ctx context.Context, match *models.Match) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockMatchRepository) Update(ctx context.Context, match *models.Match) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockMatchRepository) FindByID(ctx context.Context, id string) (*models.Match, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockMatchRepository) FindByRawTitle(ctx context.Context, rawTitle string) (*models.Match, error) {
	args := m.Called(ctx, rawTitle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockMatchRepository) FindMissingCoverArt(ctx context.Context, limit int) ([]*models.Match, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Match), args.Error(1)
}

func (m *MockMatchRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockRecordingSearcher is a mock implementation of RecordingSearcher for testing
type MockRecordingSearcher struct {
	mock.Mock
}

func (m *MockRecordingSearcher) SearchRecordings(ctx context.Context, query services.SearchQuery, limit int) ([]services.Recording, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.Recording), args.Error(1)
}

// MockRecordingDetailer is a mock implementation of RecordingDetailer for testing
type MockRecordingDetailer struct {
	mock.Mock
}

func (m *MockRecordingDetailer) GetRecording(ctx context.Context, id string) (*services.RecordingDetails, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.RecordingDetails), args.Error(1)
}

// MockCoverArtFetcher is a mock implementation of CoverArtFetcher for testing
type MockCoverArtFetcher struct {
	mock.Mock
}

func (m *MockCoverArtFetcher) FrontCover(ctx context.Context, ids []services.CoverArtID) (*services.CoverArt, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CoverArt), args.Error(1)
}

// Helper functions for setting up mock expectations

// ExpectSearch sets up expectation for SearchRecordings with any limit
func ExpectSearch(mockSearcher *MockRecordingSearcher, query services.SearchQuery, recordings []services.Recording, err error) *mock.Call {
	return mockSearcher.On("SearchRecordings", mock.Anything, query, mock.AnythingOfType("int")).Return(recordings, err)
}

// ExpectAnySearch answers every SearchRecordings call. Register it after
// the specific expectations it backs up.
func ExpectAnySearch(mockSearcher *MockRecordingSearcher, recordings []services.Recording, err error) *mock.Call {
	return mockSearcher.On("SearchRecordings", mock.Anything, mock.Anything, mock.AnythingOfType("int")).Return(recordings, err)
}

// ExpectMatchRepositorySave sets up expectation for Save with any match
func ExpectMatchRepositorySave(mockRepo *MockMatchRepository, err error) *mock.Call {
	return mockRepo.On("Save", mock.Anything, mock.AnythingOfType("*models.Match")).Return(err)
}

// ExpectMatchRepositoryFindByID sets up expectation for FindByID
func ExpectMatchRepositoryFindByID(mockRepo *MockMatchRepository, id string, match *models.Match, err error) *mock.Call {
	return mockRepo.On("FindByID", mock.Anything, id).Return(match, err)
}
