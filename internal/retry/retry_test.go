package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikey/link-joiner/internal/retry"

	"github.com/stretchr/testify/suite"
)

type RetrySuite struct {
	suite.Suite
}

func (s *RetrySuite) Test_Eventual_Success() {
	calls := 0

	err := retry.Do(context.Background(), 3, time.Millisecond, func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("fail")
		}
		return nil
	})

	s.NoError(err)
	s.Equal(3, calls)
}

func (s *RetrySuite) Test_Exhausted_Returns_Last_Error() {
	calls := 0
	last := errors.New("third")

	err := retry.Do(context.Background(), 3, time.Millisecond, func(ctx context.Context, attempt int) error {
		calls++
		if attempt == 3 {
			return last
		}
		return errors.New("earlier")
	})

	s.ErrorIs(err, last)
	s.Equal(3, calls)
}

func (s *RetrySuite) Test_Stops_When_Context_Done() {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	calls := 0

	start := time.Now()
	err := retry.Do(ctx, 10, time.Second, func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("fail")
	})

	s.Error(err)
	s.Equal(1, calls)
	s.Less(time.Since(start), 500*time.Millisecond)
}

func (s *RetrySuite) Test_Cancelled_Before_First_Attempt() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retry.Do(ctx, 3, time.Millisecond, func(ctx context.Context, attempt int) error {
		s.Fail("should not be called")
		return nil
	})

	s.ErrorIs(err, context.Canceled)
}

func TestRetrySuite(t *testing.T) {
	suite.Run(t, new(RetrySuite))
}
