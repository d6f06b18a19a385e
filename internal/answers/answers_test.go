package answers

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Formats(t *testing.T) {
	for _, in := range []string{"12345", "1 2 3 4 5", "1,2,3,4,5", " 1\n2\t3 ,4,, 5 ", "12 345", "1\u00a02\u30003\v4 5"} {
		t.Run(in, func(t *testing.T) {
			p := Parse(in)
			assert.Equal(t, []int{1, 2, 3, 4, 5}, p.Values)
			assert.Empty(t, p.Invalid)
			assert.Equal(t, 5, p.Count())
		})
	}
}

func TestParse_Empty(t *testing.T) {
	p := Parse("   \n ")
	assert.Empty(t, p.Values)
	assert.Zero(t, p.Count())
	assert.True(t, p.OK())
}

func TestParse_OutOfDomainDigitsAreNeverValues(t *testing.T) {
	p := Parse("67")
	assert.Empty(t, p.Values)
	assert.Equal(t, []string{"67"}, p.Invalid)

	p = Parse("1 2 6 x 0")
	assert.Equal(t, []int{1, 2}, p.Values)
	assert.Equal(t, []string{"6", "x", "0"}, p.Invalid)
	assert.Equal(t, 5, p.Count())
	assert.False(t, p.OK())
}

func TestParse_SignedTokensAreInvalid(t *testing.T) {
	p := Parse("+3 -1 3")
	assert.Equal(t, []int{3}, p.Values)
	assert.Equal(t, []string{"+3", "-1"}, p.Invalid)
}

func TestInvalidList_SortedAndDeduplicated(t *testing.T) {
	p := Parse("7 6 7 06 z a 9")
	assert.Equal(t, "6, 7, 9, a, z", p.InvalidList())
}

func TestBounds_Resolve(t *testing.T) {
	r, ok := Bounds{}.Resolve()
	require.True(t, ok)
	assert.Equal(t, FullRange(), r)

	r, ok = Bounds{Start: " 10 ", End: "12"}.Resolve()
	require.True(t, ok)
	assert.Equal(t, Range{Start: 10, End: 12}, r)
	assert.Equal(t, 3, r.Len())

	_, ok = Bounds{Start: "ten"}.Resolve()
	assert.False(t, ok)
	_, ok = Bounds{End: "1.5"}.Resolve()
	assert.False(t, ok)
}

func TestCheckRange(t *testing.T) {
	t.Run("count mismatch cites expected count", func(t *testing.T) {
		p := CheckRange("X", "x", Range{Start: 1, End: 45}, true, 44)
		require.Len(t, p, 1)
		assert.Equal(t, KindCount, p[0].Kind)
		assert.Contains(t, p[0].Message, "45개")
		assert.Contains(t, p[0].Message, "지금 44개")
	})

	t.Run("missing", func(t *testing.T) {
		p := CheckRange("X", "x", Range{}, false, 0)
		require.Len(t, p, 1)
		assert.Equal(t, "X 범위를 입력하세요.", p[0].Message)
	})

	t.Run("invalid bounds", func(t *testing.T) {
		for _, r := range []Range{{0, 10}, {1, 46}, {12, 10}} {
			p := CheckRange("X", "x", r, true, r.Len())
			require.Len(t, p, 1, "%+v", r)
			assert.Equal(t, KindRange, p[0].Kind)
			assert.Equal(t, "X 범위가 올바르지 않습니다. (1~45, 시작<=끝)", p[0].Message)
		}
	})

	t.Run("ok", func(t *testing.T) {
		assert.Empty(t, CheckRange("X", "x", Range{Start: 10, End: 12}, true, 3))
	})
}

func TestRange_Within(t *testing.T) {
	key := Range{Start: 1, End: 18}
	assert.True(t, Range{Start: 1, End: 18}.Within(key))
	assert.True(t, Range{Start: 5, End: 6}.Within(key))
	assert.False(t, Range{Start: 20, End: 25}.Within(key))
	assert.False(t, Range{Start: 10, End: 19}.Within(key))
}

func TestCheckValues(t *testing.T) {
	assert.Empty(t, CheckValues("공통 정답", "answers_공통", Parse("123")))

	p := CheckValues("공통 정답", "answers_공통", Parse("1 7 6 7"))
	require.Len(t, p, 1)
	assert.Equal(t, "공통 정답에 1~5가 아닌 값이 있습니다: 6, 7", p[0].Message)
}

func TestProblems_Err(t *testing.T) {
	var p Problems
	assert.NoError(t, p.Err())

	p.Add(KindSelection, "grade", "학년(%s)을 선택하세요.", "고1/고2/고3")
	p.Merge(CheckRange("X", "x", Range{}, false, 0))

	err := p.Err()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Problems, 2)
	assert.True(t, ve.Problems.Has(KindRange))
	assert.False(t, ve.Problems.Has(KindValue))
	assert.True(t, strings.HasPrefix(err.Error(), "validation failed: "))
	assert.Equal(t, []string{"학년(고1/고2/고3)을 선택하세요.", "X 범위를 입력하세요."}, p.Messages())
}
