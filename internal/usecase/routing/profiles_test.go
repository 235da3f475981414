package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParameterProfileStore_Recommend(t *testing.T) {
	store := NewParameterProfileStore()

	assert.Equal(t, store.Recommend("chat"), store.Recommend("unknown_use_case"))
	assert.Equal(t, store.Recommend("chat"), store.Recommend(""))
	assert.Equal(t, "code", store.Recommend("CODE").Name)
	assert.Equal(t, 0.1, store.Recommend("qa").Temperature)
	assert.Equal(t, 1000, store.Recommend("creative").MaxTokens)
}

func TestParameterProfileStore_ChatMatchesBalanced(t *testing.T) {
	store := NewParameterProfileStore()
	chat := store.Recommend("chat")
	balanced := store.Profile(ProfileBalanced)

	assert.Equal(t, balanced.Options(), chat.Options())
}

func TestParameterProfileStore_ProfileFallback(t *testing.T) {
	store := NewParameterProfileStore()
	assert.Equal(t, store.Profile(ProfileBalanced), store.Profile("does-not-exist"))
	assert.Equal(t, ProfileCreative, store.Profile(" Creative ").Name)
}

func TestParameterProfileStore_ValuesInRange(t *testing.T) {
	store := NewParameterProfileStore()

	all := store.UseCases()
	for _, name := range DefaultComparisonProfiles {
		all = append(all, store.Profile(name))
	}

	for _, p := range all {
		assert.GreaterOrEqual(t, p.Temperature, 0.0, p.Name)
		assert.LessOrEqual(t, p.Temperature, 2.0, p.Name)
		assert.Greater(t, p.TopP, 0.0, p.Name)
		assert.LessOrEqual(t, p.TopP, 1.0, p.Name)
		assert.Greater(t, p.MaxTokens, 0, p.Name)
		assert.NotEmpty(t, p.Rationale, p.Name)
	}
}

func TestParameterProfileStore_UseCasesSorted(t *testing.T) {
	names := []string{}
	for _, p := range NewParameterProfileStore().UseCases() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"chat", "code", "creative", "qa"}, names)
}
