package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/devilsangel360live/Hearth/internal/recipe"
)

func mustPage(t *testing.T, url, body string) *Page {
	t.Helper()
	p, err := NewPage(url, []byte(body), false)
	require.NoError(t, err)
	return p
}

func timeNowFixed() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func TestStructuredDataBasicRecipe(t *testing.T) {
	body := `<html><head>
	<script type="application/ld+json">
	{
		"@context": "https://schema.org",
		"@type": "Recipe",
		"name": "Classic Shakshuka",
		"description": "Eggs poached in a spiced tomato and pepper sauce. A one-pan brunch that scales easily.",
		"image": ["https://cdn.example.com/shakshuka.jpg", "https://cdn.example.com/shakshuka-2.jpg"],
		"totalTime": "PT35M",
		"recipeYield": "Serves 4",
		"recipeCuisine": "Middle Eastern",
		"keywords": "eggs, brunch, one-pan",
		"recipeIngredient": [
			"2 tbsp olive oil",
			"1 onion, finely sliced",
			"400 g tinned tomatoes",
			"4 eggs"
		],
		"recipeInstructions": [
			{"@type": "HowToStep", "text": "Heat the oil in a wide pan and soften the onion."},
			{"@type": "HowToStep", "text": "Add the tomatoes and simmer until thickened."},
			{"@type": "HowToStep", "text": "Crack in the eggs, cover and cook until just set."}
		]
	}
	</script>
	</head><body></body></html>`

	p := mustPage(t, "https://www.example.com/shakshuka", body)
	cand, err := StructuredData{}.Extract(p)
	require.NoError(t, err)
	require.NotNil(t, cand)

	require.Equal(t, "Classic Shakshuka", cand.Title)
	require.Equal(t, "https://cdn.example.com/shakshuka.jpg", cand.Image)
	require.Equal(t, 35, cand.ReadyInMinutes)
	require.Equal(t, 4, cand.Servings)
	require.Equal(t, []string{"Middle Eastern"}, cand.Cuisines)
	require.Equal(t, []string{"eggs", "brunch", "one-pan"}, cand.Tags)

	require.Len(t, cand.Ingredients, 4)
	require.Equal(t, recipe.Ingredient{Name: "olive oil", Amount: 2, Unit: "tbsp"}, cand.Ingredients[0])
	require.Equal(t, recipe.Ingredient{Name: "tinned tomatoes", Amount: 400, Unit: "g"}, cand.Ingredients[2])

	require.Len(t, cand.Instructions, 3)
	require.Equal(t, "Heat the oil in a wide pan and soften the onion.", cand.Instructions[0])
}

func TestStructuredDataGraphAndMalformedBlocks(t *testing.T) {
	body := `<html><head>
	<script type="application/ld+json">{"@type": "Recipe", "name": "Broken", </script>
	<script type="application/ld+json">
	{
		"@context": "https://schema.org",
		"@graph": [
			{"@type": "Organization", "name": "Example Kitchen"},
			{"@type": "WebSite", "name": "example.com"},
			{
				"@type": ["Recipe", "NewsArticle"],
				"name": "Miso Glazed Aubergine",
				"recipeIngredient": ["2 aubergines", "3 tbsp miso paste"],
				"recipeInstructions": [
					{"@type": "HowToStep", "text": "Score the aubergine halves and roast until tender."},
					{"@type": "HowToStep", "text": "Brush with the miso glaze and grill until bubbling."}
				]
			}
		]
	}
	</script>
	</head><body></body></html>`

	p := mustPage(t, "https://example.com/miso-aubergine", body)
	cand, err := StructuredData{}.Extract(p)
	require.NoError(t, err)
	require.NotNil(t, cand)
	require.Equal(t, "Miso Glazed Aubergine", cand.Title)
	require.Len(t, cand.Ingredients, 2)
	require.Len(t, cand.Instructions, 2)
}

func TestStructuredDataHowToSections(t *testing.T) {
	body := `<html><head><script type="application/ld+json">
	{
		"@type": "Recipe",
		"name": "Layered Biryani",
		"recipeIngredient": ["500 g basmati rice", "1 kg chicken thighs"],
		"recipeInstructions": [
			{
				"@type": "HowToSection",
				"name": "For the rice",
				"itemListElement": [
					{"@type": "HowToStep", "text": "Rinse the rice until the water runs clear."},
					{"@type": "HowToStep", "text": "Parboil the rice with the whole spices."}
				]
			},
			{
				"@type": "HowToSection",
				"name": "To assemble",
				"itemListElement": [
					{"@type": "HowToStep", "text": "Layer the chicken and rice in a heavy pot."}
				]
			}
		]
	}
	</script></head><body></body></html>`

	p := mustPage(t, "https://example.com/biryani", body)
	cand, err := StructuredData{}.Extract(p)
	require.NoError(t, err)
	require.NotNil(t, cand)
	require.Equal(t, []string{
		"Rinse the rice until the water runs clear.",
		"Parboil the rice with the whole spices.",
		"Layer the chicken and rice in a heavy pot.",
	}, cand.Instructions)
}

func TestStructuredDataTimeFallback(t *testing.T) {
	body := `<html><head><script type="application/ld+json">
	{
		"@type": "Recipe",
		"name": "Slow Roast Lamb",
		"prepTime": "PT20M",
		"cookTime": "PT4H",
		"recipeIngredient": ["1 lamb shoulder"],
		"recipeInstructions": "Rub the lamb with the marinade and roast low and slow until falling apart."
	}
	</script></head><body></body></html>`

	p := mustPage(t, "https://example.com/lamb", body)
	cand, err := StructuredData{}.Extract(p)
	require.NoError(t, err)
	require.NotNil(t, cand)
	require.Equal(t, 260, cand.ReadyInMinutes)
	require.Len(t, cand.Instructions, 1)
}

func TestStructuredDataNoBlocks(t *testing.T) {
	p := mustPage(t, "https://example.com/plain", "<html><body><h1>Hello</h1></body></html>")
	cand, err := StructuredData{}.Extract(p)
	require.NoError(t, err)
	require.Nil(t, cand)
}

func TestStructuredDataAllBlocksMalformed(t *testing.T) {
	body := `<html><head>
	<script type="application/ld+json">{not json at all</script>
	</head><body></body></html>`

	p := mustPage(t, "https://example.com/broken", body)
	cand, err := StructuredData{}.Extract(p)
	require.Error(t, err)
	require.Nil(t, cand)
}

func TestStructuredDataCandidateSurvivesBuild(t *testing.T) {
	body := `<html><head><script type="application/ld+json">
	{
		"@type": "Recipe",
		"name": "Herb Omelette",
		"recipeIngredient": ["3 eggs", "1 tbsp butter", "1 handful chopped herbs"],
		"recipeInstructions": [
			{"@type": "HowToStep", "text": "Whisk the eggs with a pinch of salt until combined."},
			{"@type": "HowToStep", "text": "Melt the butter and pour in the eggs."},
			{"@type": "HowToStep", "text": "Scatter over the herbs and fold the omelette in half."},
			{"@type": "HowToStep", "text": "Slide onto a plate and serve straight away."}
		]
	}
	</script></head><body></body></html>`

	p := mustPage(t, "https://www.example.com/omelette", body)
	cand, err := StructuredData{}.Extract(p)
	require.NoError(t, err)
	require.NotNil(t, cand)
	require.True(t, Accept(cand))

	r := BuildRecipe(cand, p.URL, "rec-9", timeNowFixed())
	require.Len(t, r.Ingredients, 3)
	require.Len(t, r.Instructions, 4)
	for i, step := range r.Instructions {
		require.Equal(t, i+1, step.Number)
	}
	require.Equal(t, "example.com", r.SourceName)
}
