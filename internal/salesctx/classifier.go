package salesctx

// Classifier decides whether a calculation runs on behalf of a back-office user.
type Classifier interface {
	IsAdministrative(c Context) bool
}

// SourceClassifier treats calculations initiated through the admin API as administrative.
type SourceClassifier struct{}

// IsAdministrative implements Classifier.
func (SourceClassifier) IsAdministrative(c Context) bool {
	return c.Source.Kind == SourceAdminAPI
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(Context) bool

// IsAdministrative implements Classifier.
func (f ClassifierFunc) IsAdministrative(c Context) bool { return f(c) }
