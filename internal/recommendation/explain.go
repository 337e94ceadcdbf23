package recommendation

// Explain renders the rationale for a recommendation from the title of the
// liked item that contributed the most to its score
func Explain(likedTitle string) string {
	return "because you liked " + likedTitle
}
