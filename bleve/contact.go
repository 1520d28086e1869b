package bleve

import (
	"strings"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/analysis/lang/en"
	"github.com/blevesearch/bleve/mapping"
	"github.com/blevesearch/bleve/search/query"

	"github.com/dark-cli/deptmaster"
)

type ContactIndex struct {
	index bleve.Index
}

func (s *ContactIndex) Open(path string) error {
	index, err := bleve.Open(path)

	if err == bleve.ErrorIndexPathDoesNotExist {
		index, err = bleve.New(path, createMapping())
	}
	if err != nil {
		return err
	}

	s.index = index
	return nil
}

func (s *ContactIndex) Close() error {
	if s.index == nil {
		return nil
	}

	return s.index.Close()
}

func (s *ContactIndex) Index(contact *deptmaster.Contact) error {
	data := map[string]interface{}{
		"wallet":   contact.WalletID,
		"name":     contact.Name,
		"username": contact.Username,
		"email":    contact.Email,
		"notes":    contact.Notes,
	}

	return s.index.Index(contact.ID, data)
}

func (s *ContactIndex) Delete(id string) error {
	return s.index.Delete(id)
}

func (s *ContactIndex) Search(search deptmaster.ContactSearch) ([]string, error) {
	q := andQ(
		query.NewMatchAllQuery(),
		s.walletQuery(search.WalletID),
		s.searchContact(search.Q),
	)

	searchRequest := bleve.NewSearchRequest(q)
	searchRequest.SortBy([]string{"_id"})

	if search.Limit > 0 {
		searchRequest.Size = int(search.Limit)
	}

	searchResults, err := s.index.Search(searchRequest)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(searchResults.Hits))
	for i, hit := range searchResults.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

func andQ(qs ...query.Query) query.Query {
	ands := make([]query.Query, 0, len(qs))
	for _, q := range qs {
		if q != nil {
			ands = append(ands, q)
		}
	}

	if len(ands) == 0 {
		return nil
	}
	return query.NewConjunctionQuery(ands)
}

func orQ(qs ...query.Query) query.Query {
	ors := make([]query.Query, 0, len(qs))
	for _, q := range qs {
		if q != nil {
			ors = append(ors, q)
		}
	}

	if len(ors) == 0 {
		return nil
	}
	return query.NewDisjunctionQuery(ors)
}

func (*ContactIndex) walletQuery(walletID string) query.Query {
	if walletID == "" {
		return nil
	}
	return &query.TermQuery{
		Term:     walletID,
		FieldVal: "wallet",
	}
}

// searchContact matches every word of the query against the name or one of
// the secondary fields, as prefixes.
func (s *ContactIndex) searchContact(queryString string) query.Query {
	words := strings.Fields(queryString)

	ands := make([]query.Query, 0, len(words))
	for _, word := range words {
		ands = append(ands, orQ(
			s.searchName(word),
			s.searchField(word, "username"),
			s.searchField(word, "email"),
			s.searchField(word, "notes"),
		))
	}

	return andQ(ands...)
}

func (s *ContactIndex) searchName(queryString string) query.Query {
	analyzer := s.index.Mapping().AnalyzerNamed(en.AnalyzerName)
	tokens := analyzer.Analyze([]byte(queryString))
	if len(tokens) == 0 {
		return nil
	}

	conjuncs := make([]query.Query, len(tokens))
	for i, token := range tokens {
		conjuncs[i] = &query.PrefixQuery{
			Prefix:   string(token.Term),
			FieldVal: "name",
		}
	}

	return query.NewConjunctionQuery(conjuncs)
}

func (s *ContactIndex) searchField(queryString, field string) query.Query {
	analyzer := s.index.Mapping().AnalyzerNamed(simple.Name)
	tokens := analyzer.Analyze([]byte(queryString))
	if len(tokens) == 0 {
		return nil
	}

	conjuncs := make([]query.Query, len(tokens))
	for i, token := range tokens {
		conjuncs[i] = &query.PrefixQuery{
			Prefix:   string(token.Term),
			FieldVal: field,
		}
	}

	return query.NewConjunctionQuery(conjuncs)
}

// createMapping keeps the wallet id out of the analyzers so the term query
// matches it whole, hyphens included.
func createMapping() mapping.IndexMapping {
	wallet := bleve.NewTextFieldMapping()
	wallet.Analyzer = keyword.Name

	name := bleve.NewTextFieldMapping()
	name.Analyzer = en.AnalyzerName

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("wallet", wallet)
	doc.AddFieldMappingsAt("name", name)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}
