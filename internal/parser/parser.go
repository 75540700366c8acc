// # internal/parser/parser.go
package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// Parser turns Python source text into a ParseResult. It wraps the
// tree-sitter grammar; the syntax tree is closed before ParseFile returns,
// so callers only ever see the extracted IR.
type Parser struct {
	language *sitter.Language
}

func NewParser() *Parser {
	return &Parser{
		language: sitter.NewLanguage(tree_sitter_python.Language()),
	}
}

func (p *Parser) ParseFile(path string, content []byte) (*ParseResult, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.language)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, errors.New("parse failed")
	}
	defer tree.Close()

	ex := &extractor{source: content}
	result := &ParseResult{
		Path:        path,
		ContentHash: HashContent(content),
		ParsedAt:    time.Now(),
	}
	result.Body = ex.extractBlock(tree.RootNode())
	result.Imports = ex.imports

	return result, nil
}

// HashContent returns the content hash used for change detection between
// editor buffers and on-disk state.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
