package similarity

var defaultStopWords = toSet(
	// English
	"about", "after", "all", "also", "am", "an", "and", "any", "are", "as", "at",
	"be", "because", "been", "but", "by", "can", "could", "do", "does", "for",
	"from", "had", "has", "have", "he", "her", "him", "his", "how", "if", "in",
	"into", "is", "it", "its", "just", "like", "me", "more", "my", "no", "not",
	"of", "on", "or", "our", "out", "she", "so", "some", "than", "that", "the",
	"their", "them", "then", "there", "these", "they", "this", "to", "up", "us",
	"very", "was", "we", "were", "what", "when", "which", "who", "will", "with",
	"would", "you", "your",
	// Russian
	"без", "был", "была", "были", "было", "быть", "вам", "вас", "весь", "во",
	"вот", "все", "всё", "вы", "где", "да", "для", "до", "его", "ее", "её", "если",
	"есть", "еще", "ещё", "же", "за", "здесь", "из", "или", "им", "их", "как",
	"когда", "кто", "ли", "мне", "мой", "мы", "на", "над", "не", "нет", "ни",
	"но", "ну", "об", "он", "она", "они", "оно", "от", "по", "под", "при", "про",
	"так", "также", "там", "то", "тоже", "только", "ты", "уже", "хочу", "чем",
	"что", "чтобы", "это", "эти", "этот", "я",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
