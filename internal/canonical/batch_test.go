package canonical

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type BatchSuite struct {
	suite.Suite
}

func TestBatchSuite(t *testing.T) {
	suite.Run(t, new(BatchSuite))
}

func (s *BatchSuite) TestProcess() {
	s.Run("partitions valid, duplicate and invalid entries", func() {
		result := Process([]string{"example.com", "invalid domain", "www.example.com", "not-a-domain"})

		s.Equal([]string{"example.com"}, result.Valid)
		s.Equal([]string{"www.example.com"}, result.Duplicates)
		s.Equal([]string{"invalid domain", "not-a-domain"}, result.Invalid)
	})

	s.Run("dedup is by canonical form not raw spelling", func() {
		result := Process([]string{"Example.com", "http://example.com/", "blog.example.com"})

		s.Equal([]string{"example.com"}, result.Valid)
		// Both later spellings collapse to the same canonical name.
		s.Equal([]string{"http://example.com/", "blog.example.com"}, result.Duplicates)
		s.Empty(result.Invalid)
	})

	s.Run("every input lands in exactly one list", func() {
		input := []string{"a.com", "b.org", "a.com", "bad input", "custom.b.org"}
		result := Process(input)
		s.Len(result.Valid, 3)
		s.Len(result.Duplicates, 1)
		s.Len(result.Invalid, 1)
		s.Equal(len(input), len(result.Valid)+len(result.Duplicates)+len(result.Invalid))
	})

	s.Run("order of first appearance is preserved", func() {
		result := Process([]string{"zeta.com", "alpha.com", "zeta.com"})
		s.Equal([]string{"zeta.com", "alpha.com"}, result.Valid)
	})

	s.Run("empty batch yields empty result", func() {
		result := Process(nil)
		s.Empty(result.Valid)
		s.Empty(result.Duplicates)
		s.Empty(result.Invalid)
	})
}
