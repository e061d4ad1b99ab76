package jsast

import (
	"github.com/t14raptor/go-fast/ast"
)

// PathLink is one step of a root-to-node chain: the arena cell visited and the
// node that occupied it at recording time.
type PathLink struct {
	StmtCell *ast.Statement
	ExprCell *ast.Expression
	Content  any
}

// Path records where a node sat in the tree when a scope crawl (or a cursor
// snapshot) saw it. Paths are borrowed views; they never own nodes.
type Path struct {
	program *ast.Program
	links   []PathLink
}

// Node returns the node at the end of the path as it was recorded.
func (p *Path) Node() any {
	if len(p.links) == 0 {
		return nil
	}
	return p.links[len(p.links)-1].Content
}

// Attached reports whether the path still roots at the program: its first
// link must be a live top-level statement cell and every recorded cell must
// still hold the node it held at recording time. A transform that replaced or
// removed any ancestor breaks the chain, which is exactly what makes the
// reference a ghost.
func (p *Path) Attached() bool {
	if p == nil || p.program == nil || len(p.links) == 0 {
		return false
	}
	first := p.links[0]
	if first.StmtCell == nil {
		return false
	}
	rooted := false
	for i := range p.program.Body {
		if &p.program.Body[i] == first.StmtCell {
			rooted = true
			break
		}
	}
	if !rooted {
		return false
	}
	for _, link := range p.links {
		switch {
		case link.StmtCell != nil:
			if any(link.StmtCell.Stmt) != link.Content {
				return false
			}
		case link.ExprCell != nil:
			if any(link.ExprCell.Expr) != link.Content {
				return false
			}
		default:
			return false
		}
	}
	return true
}
