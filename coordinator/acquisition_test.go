package coordinator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-circulation-go/coordinator"
	"github.com/AntonStoeckl/library-circulation-go/library"
	"github.com/AntonStoeckl/library-circulation-go/lookup"
	"github.com/AntonStoeckl/library-circulation-go/testutil/testdoubles"
)

func foundVolume() lookup.Result {
	return lookup.Result{
		Title:  "Learning Domain-Driven Design",
		Author: "Vlad Khononov",
		Pages:  340,
		Genre:  "Computers",
		Found:  true,
	}
}

func Test_Coordinator_LookupBook_Found(t *testing.T) {
	// arrange
	stub := &testdoubles.BookLookupStub{Result: foundVolume()}
	f := newFixture(t, seedLibrary(), coordinator.WithLookup(stub))

	// act
	result, err := f.coordinator.LookupBook(context.Background(), "978-1-098-10013-1")

	// assert
	require.NoError(t, err)
	assert.Equal(t, "9781098100131", result.ISBN)
	assert.Equal(t, "Vlad Khononov", result.Author)
	assert.False(t, f.books.Contains("9781098100131"), "a lookup does not catalog anything")
}

func Test_Coordinator_LookupBook_Errors(t *testing.T) {
	testCases := []struct {
		description string
		stub        *testdoubles.BookLookupStub
		isbn        string
		expectedErr error
		lookupCalls int
	}{
		{
			description: "already cataloged",
			stub:        &testdoubles.BookLookupStub{Result: foundVolume()},
			isbn:        "978-0-13-449416-6",
			expectedErr: library.ErrDuplicateKey,
		},
		{
			description: "unknown upstream",
			stub:        &testdoubles.BookLookupStub{Result: lookup.Result{Found: false}},
			isbn:        "9781098100131",
			expectedErr: library.ErrNotFound,
			lookupCalls: 1,
		},
		{
			description: "rate limited",
			stub:        &testdoubles.BookLookupStub{Err: errors.Join(library.ErrUpstreamUnavailable, lookup.ErrRateLimited)},
			isbn:        "9781098100131",
			expectedErr: lookup.ErrRateLimited,
			lookupCalls: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			// arrange
			f := newFixture(t, seedLibrary("9780134494166"), coordinator.WithLookup(tc.stub))

			// act
			_, err := f.coordinator.LookupBook(context.Background(), tc.isbn)

			// assert
			assert.ErrorIs(t, err, tc.expectedErr)
			assert.Equal(t, tc.lookupCalls, tc.stub.Calls())
		})
	}
}

func Test_Coordinator_LookupBook_UpstreamUnavailableIsNotNotFound(t *testing.T) {
	// arrange
	stub := &testdoubles.BookLookupStub{Err: errors.Join(library.ErrUpstreamUnavailable, errors.New("503"))}
	f := newFixture(t, seedLibrary(), coordinator.WithLookup(stub))

	// act
	_, err := f.coordinator.LookupBook(context.Background(), "9781098100131")

	// assert
	assert.ErrorIs(t, err, library.ErrUpstreamUnavailable)
	assert.NotErrorIs(t, err, library.ErrNotFound)
}

func Test_Coordinator_LookupBook_NotConfigured(t *testing.T) {
	f := newFixture(t, seedLibrary())

	_, err := f.coordinator.LookupBook(context.Background(), "9781098100131")

	assert.ErrorIs(t, err, library.ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, coordinator.ErrLookupNotConfigured)
}

func Test_Coordinator_LookupBook_HoldsNoLock(t *testing.T) {
	// arrange
	block := make(chan struct{})
	stub := &testdoubles.BookLookupStub{Result: foundVolume(), Block: block}
	f := newFixture(t, seedLibrary("A"), coordinator.WithLookup(stub))

	lookupDone := make(chan error, 1)
	go func() {
		_, err := f.coordinator.LookupBook(context.Background(), "9781098100131")
		lookupDone <- err
	}()

	require.Eventually(t, func() bool { return stub.Calls() == 1 }, time.Second, time.Millisecond)

	// act
	_, issueErr := f.coordinator.IssueBook(context.Background(), "A", 1001)

	// assert
	assert.NoError(t, issueErr, "issuing must not wait for a lookup in flight")
	close(block)
	assert.NoError(t, <-lookupDone)
}

func Test_Coordinator_AddBookFromLookup(t *testing.T) {
	// arrange
	stub := &testdoubles.BookLookupStub{Result: foundVolume()}
	f := newFixture(t, seedLibrary(), coordinator.WithLookup(stub))

	// act
	added, err := f.coordinator.AddBookFromLookup(context.Background(), "978-1-098-10013-1")

	// assert
	require.NoError(t, err)
	assert.Equal(t, "9781098100131", added.ISBN)
	assert.True(t, added.Available)
	assert.Equal(t, added, mustGetBook(t, f, "9781098100131"))
	persisted, ok := f.backend.PersistedBook("9781098100131")
	assert.True(t, ok)
	assert.Equal(t, added, persisted)

	_, err = f.coordinator.AddBookFromLookup(context.Background(), "9781098100131")
	assert.ErrorIs(t, err, library.ErrDuplicateKey)
	assert.Equal(t, 1, stub.Calls())
}
