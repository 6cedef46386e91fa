package syllabus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-bot/api/internal/logger"
	"quiz-bot/api/internal/quiz"
)

func TestExtract_FallsBackToDescription(t *testing.T) {
	in := Input{
		Questions: []quiz.Question{{Body: "q1"}, {Body: "q2", SubjectName: "General"}},
		Metadata:  &quiz.Metadata{Description: "Physics: Optics, Waves. Chemistry: Bonding."},
	}
	s := NewExtractor(logger.NewTestLogger(t)).Extract(context.Background(), in)

	assert.Equal(t, SourceDescription, s.Source)
	assert.Equal(t, []string{"Optics", "Waves"}, s.Topics(Physics))
	assert.Equal(t, []string{"Bonding"}, s.Topics(Chemistry))
	assert.False(t, s.Has(Botany))
	assert.False(t, s.Has(Zoology))
	assert.Equal(t, []Subject{Physics, Chemistry}, s.Subjects())
}

func TestExtract_QuestionsWinOverDescription(t *testing.T) {
	in := Input{
		Questions: []quiz.Question{
			{SubjectName: "Physics", ChapterName: "Optics", TopicName: "Refraction"},
			{SubjectName: "Physics", ChapterName: "Optics", TopicName: "Refraction"},
			{Subject: "Chemistry", ChapterName: "Mole Concept", TopicName: "Mole Concept"},
			{SubjectName: "NEET Botany", TopicName: "Cell Cycle"},
			{SubjectName: "physics", ChapterName: "ignored: lower-case subject"},
		},
		Metadata: &quiz.Metadata{Description: "Zoology: Evolution"},
	}
	s := NewExtractor(nil).Extract(context.Background(), in)

	assert.Equal(t, SourceQuestions, s.Source)
	assert.Equal(t, []string{"Optics: Refraction"}, s.Topics(Physics))
	assert.Equal(t, []string{"Mole Concept"}, s.Topics(Chemistry))
	assert.Equal(t, []string{"Cell Cycle"}, s.Topics(Botany))
	assert.False(t, s.Has(Zoology))
}

func TestExtract_NothingFound(t *testing.T) {
	s := NewExtractor(nil).Extract(context.Background(), Input{
		Metadata: &quiz.Metadata{Description: "Full syllabus mock"},
	})
	assert.Equal(t, SourceNone, s.Source)
	assert.True(t, s.Empty())
	assert.Empty(t, s.Map())
}

type failing struct{}

func (failing) Source() Source { return SourceLLM }
func (failing) Extract(context.Context, Input) (*Syllabus, error) {
	return nil, errors.New("quota")
}

func TestExtract_StrategyErrorsAreSkipped(t *testing.T) {
	e := NewExtractor(logger.NewTestLogger(t), failing{}, FromDescription{})
	s := e.Extract(context.Background(), Input{Metadata: &quiz.Metadata{Syllabus: "Botany: Plant Kingdom"}})
	assert.Equal(t, SourceDescription, s.Source)
	assert.Equal(t, []string{"Plant Kingdom"}, s.Topics(Botany))
}

func TestInput_Texts(t *testing.T) {
	in := Input{Metadata: &quiz.Metadata{Syllabus: "No Syllabus", Description: "desc"}, Blobs: []string{"", "blob"}}
	assert.Equal(t, []string{"desc", "blob"}, in.Texts())

	in.Metadata.Syllabus = "Physics: Units"
	assert.Equal(t, []string{"Physics: Units", "blob"}, in.Texts())

	in.Metadata.Syllabus = "  no syllabus "
	assert.Equal(t, []string{"desc", "blob"}, in.Texts())

	// a real syllabus that only mentions the phrase is kept
	in.Metadata.Syllabus = "Physics: Optics (no syllabus change), Waves"
	assert.Equal(t, []string{"Physics: Optics (no syllabus change), Waves", "blob"}, in.Texts())

	assert.Empty(t, Input{}.Texts())
}

func TestSyllabus_AddDedupes(t *testing.T) {
	s := New(SourceQuestions)
	assert.True(t, s.Add(Physics, "Optics"))
	assert.False(t, s.Add(Physics, " Optics "))
	assert.False(t, s.Add(Physics, ""))
	assert.Equal(t, map[string][]string{"Physics": {"Optics"}}, s.Map())

	var nilS *Syllabus
	assert.True(t, nilS.Empty())
	assert.Nil(t, nilS.Topics(Physics))
}

func TestFromDescription_FirstBlobWinsPerSubject(t *testing.T) {
	in := Input{
		Metadata: &quiz.Metadata{Description: `Physics：Kinematics\nZoology: ab`},
		Blobs:    []string{"Physics: Thermodynamics, Zoology: Human Physiology"},
	}
	s, err := FromDescription{}.Extract(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kinematics"}, s.Topics(Physics))
	// "ab" is too short, so the second blob supplies zoology
	assert.Equal(t, []string{"Human Physiology"}, s.Topics(Zoology))
}

func TestCleanTopics(t *testing.T) {
	cases := map[string]string{
		`<b>laws of MOTION</b> ,work ,, energy`:   "Laws Of Motion, Work, Energy",
		`DNA replication and RNA`:                 "DNA Replication And RNA",
		`\"units\" test and 'measurement'\r\nquiz`: "Units And Measurement",
		` , optics , `:                            "Optics",
		`3d geometry`:                             "3d Geometry",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanTopics(in), in)
	}
}

func TestSplitTopics(t *testing.T) {
	assert.Equal(t, []string{"Optics", "Waves"}, SplitTopics("Optics, Waves."))
	assert.Empty(t, SplitTopics(" , . "))
}

func TestBlobsFromPayload(t *testing.T) {
	long := "This mock covers Physics: Optics and a lot more text to be long enough"
	assert.Equal(t, []string{"Chemistry: Bonding", long},
		BlobsFromPayload([]byte(`{"quiz_desc":"Chemistry: Bonding","note":"`+long+`","short":"Physics"}`)))
	assert.Equal(t, []string{"Botany: Cells", "plain"},
		BlobsFromPayload([]byte(`[{"description":"Botany: Cells"},"plain",3]`)))
	assert.Nil(t, BlobsFromPayload([]byte(`null`)))
	assert.Nil(t, BlobsFromPayload(nil))
}
