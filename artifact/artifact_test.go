package artifact_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeforge/kernel/artifact"
	"github.com/latticeforge/kernel/symbol"
)

func TestNewComputesHash(t *testing.T) {
	content := artifact.CodeContent{Language: artifact.LanguageGo, SourceText: "package main"}
	a, err := artifact.New(content)
	require.NoError(t, err)
	assert.Equal(t, content.ContentHash(), a.Hash())
	assert.True(t, a.Verify())
}

func TestVerifyFailsAfterUncheckedTamper(t *testing.T) {
	content := artifact.CodeContent{Language: artifact.LanguageGo, SourceText: "package main"}
	wrongHash := artifact.CodeContent{SourceText: "package other"}.ContentHash()
	a := artifact.NewUnchecked(content, wrongHash)
	assert.False(t, a.Verify())
}

func TestMapProducesFreshHash(t *testing.T) {
	original, err := artifact.New(artifact.CodeContent{Language: artifact.LanguageGo, SourceText: "a"})
	require.NoError(t, err)

	mapped, err := artifact.Map(original, func(c artifact.CodeContent) (artifact.CodeContent, error) {
		c.SourceText += "b"
		return c, nil
	})
	require.NoError(t, err)
	assert.NotEqual(t, original.Hash(), mapped.Hash())
	assert.True(t, mapped.Verify())
}

func TestConfigContentValidateRequiresFormat(t *testing.T) {
	_, err := artifact.New(artifact.ConfigContent{Entries: map[string]string{"a": "1"}})
	assert.Error(t, err)
}

func TestConfigContentHashIndependentOfMapOrder(t *testing.T) {
	a := artifact.ConfigContent{Format: artifact.ConfigFormatJSON, Entries: map[string]string{"a": "1", "b": "2"}}
	b := artifact.ConfigContent{Format: artifact.ConfigFormatJSON, Entries: map[string]string{"b": "2", "a": "1"}}
	assert.Equal(t, a.ContentHash(), b.ContentHash())
}

func TestDeltaValidateBase(t *testing.T) {
	a, err := artifact.New(artifact.CodeContent{Language: artifact.LanguageGo, SourceText: "package main"})
	require.NoError(t, err)

	d, err := artifact.NewDeltaBuilder[artifact.CodeContent]().
		Target(symbol.MustParse("main")).
		Op(artifact.Replace[artifact.CodeContent]{Content: artifact.CodeContent{SourceText: "package main2"}}).
		ForArtifact(a).
		Build()
	require.NoError(t, err)

	assert.NoError(t, d.ValidateBase(a))

	other, err := artifact.New(artifact.CodeContent{SourceText: "different"})
	require.NoError(t, err)
	err = d.ValidateBase(other)
	var mismatch *artifact.BaseMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestDeltaBuilderRequiresFieldsInOrder(t *testing.T) {
	_, err := artifact.NewDeltaBuilder[artifact.CodeContent]().Build()
	var invalid *artifact.InvalidOperationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "target", invalid.MissingField)

	_, err = artifact.NewDeltaBuilder[artifact.CodeContent]().Target(symbol.MustParse("a")).Build()
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "operation", invalid.MissingField)
}

func TestOperationClassification(t *testing.T) {
	add := artifact.Add[artifact.CodeContent]{}
	remove := artifact.Remove[artifact.CodeContent]{}
	replace := artifact.Replace[artifact.CodeContent]{}

	assert.True(t, artifact.IsCommutative[artifact.CodeContent](add))
	assert.True(t, artifact.IsCommutative[artifact.CodeContent](remove))
	assert.False(t, artifact.IsCommutative[artifact.CodeContent](replace))

	assert.False(t, artifact.ReadsState[artifact.CodeContent](add))
	assert.True(t, artifact.ReadsState[artifact.CodeContent](replace))

	assert.True(t, artifact.WritesState[artifact.CodeContent](add))
}
