package morph

import "slices"

// Части речи в порядке, в котором они перечислены в схеме промпта.
var PartsOfSpeech = []string{
	"İsim",
	"Sifət",
	"Say",
	"Əvəzlik",
	"Feil",
	"Zərf",
	"Qoşma",
	"Bağlayıcı",
	"Ədat",
	"Nida",
	"Modal söz",
	"Feil (Məsdər)",
	"İsim (Məsdər)",
}

const (
	WordSimple   = "Sadə"
	WordDerived  = "Düzəltmə"
	WordCompound = "Mürəkkəb"
)

var WordTypes = []string{WordSimple, WordDerived, WordCompound}

const (
	SegmentRoot        = "Kök"
	SegmentLexical     = "Leksik Şəkilçi"
	SegmentGrammatical = "Qrammatik Şəkilçi"
	SegmentHyphen      = "Birləşdirici tire"
)

var SegmentTypes = []string{SegmentRoot, SegmentLexical, SegmentGrammatical, SegmentHyphen}

const (
	UsageGeneral     = "Ümumi"
	UsageTerminology = "Terminologiya"
)

var Usages = []string{UsageGeneral, UsageTerminology}

// Feature — грамматический признак и его допустимые значения.
type Feature struct {
	Name   string
	Values []string
}

// Features перечислены в фиксированном порядке: он же используется в схеме.
var Features = []Feature{
	{Name: "Number", Values: []string{"Sing", "Plur"}},
	{Name: "Case", Values: []string{"Nom", "Gen", "Dat", "Abl", "Loc"}},
	{Name: "Person", Values: []string{"1", "2", "3"}},
	{Name: "Tense", Values: []string{"Past", "Pres", "Fut"}},
	{Name: "Mood", Values: []string{"Ind", "Imp", "Cnd"}},
	{Name: "Aspect", Values: []string{"Prog", "Imp", "Perf"}},
	{Name: "Voice", Values: []string{"Act", "Pass"}},
	{Name: "Degree", Values: []string{"Pos", "Cmp", "Sup"}},
	{Name: "Polarity", Values: []string{"Pos", "Neg"}},
}

func IsPartOfSpeech(s string) bool { return slices.Contains(PartsOfSpeech, s) }
func IsWordType(s string) bool     { return slices.Contains(WordTypes, s) }
func IsSegmentType(s string) bool  { return slices.Contains(SegmentTypes, s) }
func IsUsage(s string) bool        { return slices.Contains(Usages, s) }

// FeatureValues возвращает допустимые значения признака; ok=false для неизвестного ключа.
func FeatureValues(name string) ([]string, bool) {
	for _, f := range Features {
		if f.Name == name {
			return f.Values, true
		}
	}
	return nil, false
}
