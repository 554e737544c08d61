package phrases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leonardotrapani/voxbridge/internal/cache"
	"github.com/leonardotrapani/voxbridge/internal/clock"
	"github.com/leonardotrapani/voxbridge/internal/connectivity"
	"github.com/leonardotrapani/voxbridge/internal/language"
	"github.com/leonardotrapani/voxbridge/internal/pipeline"
	"github.com/leonardotrapani/voxbridge/internal/recording"
	"github.com/leonardotrapani/voxbridge/internal/testutil"
)

func TestBookIsWellFormed(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range ByCategory("") {
		require.False(t, seen[p.ID], "duplicate phrase %s", p.ID)
		seen[p.ID] = true
		require.True(t, IsCategory(p.Category), "phrase %s", p.ID)
		require.Contains(t, []Severity{Critical, High, Medium}, p.Severity)
		_, ok := p.In(fallbackLang)
		require.True(t, ok, "phrase %s has no %s text", p.ID, fallbackLang)
		for lang := range p.Text {
			require.True(t, language.IsSupported(lang), "phrase %s uses %q", p.ID, lang)
		}
	}
	require.Len(t, seen, 17)
}

func TestByCategoryInDisplayOrder(t *testing.T) {
	got := ByCategory(General)
	var ids []string
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	require.Equal(t, []string{"general-help", "general-doctor", "general-hospital", "general-ambulance"}, ids)

	all := ByCategory("")
	require.Equal(t, "pain-chest", all[0].ID)
	require.Equal(t, General, all[len(all)-1].Category)

	require.Empty(t, ByCategory("dental"))
	require.False(t, IsCategory("dental"))
	require.Len(t, Categories(), 5)
}

func TestLookup(t *testing.T) {
	p, ok := Lookup("breathing-cant")
	require.True(t, ok)
	text, ok := p.In("IT")
	require.True(t, ok)
	require.Equal(t, "Non riesco a respirare", text)

	_, ok = Lookup("nope")
	require.False(t, ok)
}

func newOrchestrator(t *testing.T, mt *testutil.MockTranslator, net *connectivity.Switch) *pipeline.Orchestrator {
	t.Helper()
	o, err := pipeline.New(pipeline.Options{
		Machine:     recording.NewMachine(testutil.NewMockDevice(), clock.Real{}, recording.DefaultMachineConfig()),
		Transcriber: testutil.NewMockTranscriber(""),
		Translator:  mt,
		Cache:       cache.New(cache.Options{Memory: cache.NewMemory(10), Online: net}),
		Network:     net,
		SourceLang:  "fr",
		TargetLang:  "en",
	})
	require.NoError(t, err)
	return o
}

func TestRenderFromBookWorksOffline(t *testing.T) {
	mt := testutil.NewMockTranslator(nil)
	net := connectivity.NewSwitch(connectivity.Static(true), true)
	o := newOrchestrator(t, mt, net)
	p, _ := Lookup("general-ambulance")

	res, err := Render(context.Background(), o, p, "fr", "de")
	require.NoError(t, err)
	require.Equal(t, "Appelez une ambulance", res.OriginalText)
	require.Equal(t, "Rufen Sie einen Krankenwagen", res.TranslatedText)
	require.Equal(t, TierPhrasebook, res.Tier)
	require.Empty(t, mt.Calls())
}

func TestRenderTranslatesMissingLanguageThroughCache(t *testing.T) {
	mt := testutil.NewMockTranslator(map[string]string{"Call an ambulance": "救急車を呼んでください"})
	net := connectivity.NewSwitch(connectivity.Static(true), false)
	o := newOrchestrator(t, mt, net)
	p, _ := Lookup("general-ambulance")
	ctx := context.Background()

	res, err := Render(ctx, o, p, "ko", "ja")
	require.NoError(t, err)
	require.Equal(t, "救急車を呼んでください", res.TranslatedText)
	require.Equal(t, "en", res.SourceLang)
	require.False(t, res.FromCache)
	calls := mt.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "en", calls[0].SourceLang)

	net.SetOffline(true)
	res, err = Render(ctx, o, p, "en", "ja")
	require.NoError(t, err)
	require.True(t, res.FromCache)
	require.Equal(t, cache.TierMemory, res.Tier)
	require.Len(t, mt.Calls(), 1)

	_, err = Render(ctx, o, p, "en", "klingon")
	require.Error(t, err)
}
