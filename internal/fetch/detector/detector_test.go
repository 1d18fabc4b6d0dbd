package detector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devilsangel360live/Hearth/internal/recipe"
)

func TestHeuristic_NeedsRender_EmptyBody(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	resp := recipe.FetchResponse{
		StatusCode: 200,
		Body:       []byte("  \n "),
	}
	require.True(t, h.NeedsRender(resp))
}

func TestHeuristic_NeedsRender_SPAMarkers(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	for _, body := range []string{
		`<div id="__next"></div>`,
		`<div id="root"></div><script src="/bundle.js"></script>`,
		`<html ng-app="kitchen"><body></body></html>`,
	} {
		resp := recipe.FetchResponse{StatusCode: 200, Body: []byte(body)}
		require.True(t, h.NeedsRender(resp), "body %q should promote", body)
	}
}

func TestHeuristic_NeedsRender_ScriptDensity(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(1000)
	resp := recipe.FetchResponse{
		StatusCode: 200,
		Body:       []byte(`<html><script>var a=1;</script><p>t</p></html>`),
	}
	require.True(t, h.NeedsRender(resp))
}

func TestHeuristic_NeedsRender_StaticRecipePage(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(10)
	resp := recipe.FetchResponse{
		StatusCode: 200,
		Body: []byte(`<html><body><h1>Tomato Soup</h1>
<ul><li>2 cups tomatoes</li><li>1 onion</li></ul>
<ol><li>Chop the onion.</li><li>Simmer everything.</li></ol></body></html>`),
	}
	require.False(t, h.NeedsRender(resp))
}

func TestHeuristic_NeedsRender_DisabledForNon200(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	resp := recipe.FetchResponse{
		StatusCode: 404,
		Body:       []byte("not found"),
	}
	require.False(t, h.NeedsRender(resp))
}

func TestHeuristic_NeedsRender_ContentSelectors(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(10)
	h.ContentSelectors = []string{"article", "main"}

	bare := recipe.FetchResponse{
		StatusCode: 200,
		Body:       []byte(`<html><body><div>shell only, no landmarks here</div></body></html>`),
	}
	require.True(t, h.NeedsRender(bare))

	withMain := recipe.FetchResponse{
		StatusCode: 200,
		Body:       []byte(`<html><body><main><h1>Stew</h1></main></body></html>`),
	}
	require.False(t, h.NeedsRender(withMain))
}

func TestInterstitial(t *testing.T) {
	t.Parallel()

	require.True(t, Interstitial([]byte(`<html><body><h1>Access Denied</h1><p>contact support</p></body></html>`)))
	require.True(t, Interstitial([]byte(`<html><body>Please enable JavaScript and complete the CAPTCHA.</body></html>`)))

	// A failure token inside a genuine recipe page is not a block.
	require.False(t, Interstitial([]byte(`<html><body><h1>Blackout Cake Recipe</h1>
<p>error 404 jokes aside, the ingredients are below.</p></body></html>`)))

	// No failure indicator at all.
	require.False(t, Interstitial([]byte(`<html><body><h1>Pasta</h1><p>Boil water.</p></body></html>`)))
}
