package cypher

import "strconv"

// ---------------------------------------------------------------------------
// Parser — recursive-descent parser turning a token stream into a Query AST.
//
// Grounded on the teacher's cypher_parser.go (cur/advance/expect/is/match
// helper shape, OrExpr/AndExpr/NotExpr/Comparison/Primary precedence chain)
// but expanded per spec §4.1 grammar to a full statement sequence and a
// richer expression grammar:
//
//   Query      → Statement*
//   Statement  → MatchStmt | CreateStmt | UnwindStmt | WithStmt | ReturnStmt
//   MatchStmt  → [OPTIONAL] MATCH Pattern [WHERE Expr]
//   CreateStmt → CREATE Pattern (',' Pattern)*
//   UnwindStmt → UNWIND Expr AS ident
//   WithStmt   → WITH [DISTINCT] ProjectItems [WHERE Expr] [OrderBy] [Skip] [Limit]
//   ReturnStmt → RETURN [DISTINCT] ProjectItems [OrderBy] [Skip] [Limit]
//
//   ProjectItems → ProjectItem (',' ProjectItem)*
//   ProjectItem  → '*' | Expr [AS ident]
//
//   Expr        → OrExpr
//   OrExpr      → AndExpr (OR AndExpr)*
//   AndExpr     → NotExpr (AND NotExpr)*
//   NotExpr     → NOT NotExpr | Comparison
//   Comparison  → Additive [ compOp Additive ]
//   Additive    → Multiplicative (('+' | '-') Multiplicative)*
//   Multiplicative → Unary (('*' | '/') Unary)*
//   Unary       → '-' Unary | LabelTest
//   LabelTest   → Primary (':' ident)*
//   Primary     → ident ('.' ident)+
//               | ident '(' [DISTINCT] [Expr (',' Expr)*] ')'
//               | ident '(' '*' ')'
//               | ident
//               | Param
//               | Literal
//               | '[' [Expr (',' Expr)*] ']'
//               | '{' [ident ':' Expr (',' ident ':' Expr)*] '}'
//               | '(' Expr ')'
//
// Unary minus is desugared to `0 - x` at parse time per SPEC_FULL.md's
// resolution of the spec's unary-minus open question, rather than adding a
// distinct AST node for it.
// ---------------------------------------------------------------------------

type parser struct {
	tokens []Token
	pos    int
}

// parseCypher tokenises and parses a full Cypher query string into a Query.
func parseCypher(input string) (*Query, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return nil, newSyntaxError(err.Error(), 0)
	}
	p := &parser{tokens: tokens}
	q, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	if !p.is(tokEOF) {
		return nil, newSyntaxError("unexpected token "+tokenKindName(p.cur().Kind)+" after query end", p.cur().Pos)
	}
	return q, nil
}

func (p *parser) cur() Token {
	if p.pos >= len(p.tokens) {
		return Token{Kind: tokEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() Token {
	t := p.cur()
	p.pos++
	return t
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	t := p.cur()
	if t.Kind != kind {
		return t, newSyntaxError("expected "+tokenKindName(kind)+" but got "+tokenKindName(t.Kind), t.Pos)
	}
	p.pos++
	return t, nil
}

func (p *parser) is(kind TokenKind) bool { return p.cur().Kind == kind }

func (p *parser) match(kind TokenKind) bool {
	if p.is(kind) {
		p.pos++
		return true
	}
	return false
}

// ---------------- statements -----------------------------------------------

func (p *parser) parseStatements() (*Query, error) {
	q := &Query{}
	for {
		switch p.cur().Kind {
		case tokMatch, tokOptional:
			stmt, err := p.parseMatchStatement()
			if err != nil {
				return nil, err
			}
			q.Statements = append(q.Statements, stmt)
		case tokCreate:
			stmt, err := p.parseCreateStatement()
			if err != nil {
				return nil, err
			}
			q.Statements = append(q.Statements, stmt)
		case tokUnwind:
			stmt, err := p.parseUnwindStatement()
			if err != nil {
				return nil, err
			}
			q.Statements = append(q.Statements, stmt)
		case tokWith:
			stmt, err := p.parseWithStatement()
			if err != nil {
				return nil, err
			}
			q.Statements = append(q.Statements, stmt)
		case tokReturn:
			stmt, err := p.parseReturnStatement()
			if err != nil {
				return nil, err
			}
			q.Statements = append(q.Statements, stmt)
			return q, nil
		default:
			return q, nil
		}
	}
}

func (p *parser) parseMatchStatement() (*MatchStatement, error) {
	ms := &MatchStatement{}
	if p.match(tokOptional) {
		ms.Optional = true
	}
	if _, err := p.expect(tokMatch); err != nil {
		return nil, err
	}
	pat, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	ms.Pattern = pat

	if p.match(tokWhere) {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ms.Where = &expr
	}
	return ms, nil
}

func (p *parser) parseCreateStatement() (*CreateStatement, error) {
	if _, err := p.expect(tokCreate); err != nil {
		return nil, err
	}
	cs := &CreateStatement{}
	for {
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		cs.Patterns = append(cs.Patterns, pat)
		if !p.match(tokComma) {
			break
		}
	}
	return cs, nil
}

func (p *parser) parseUnwindStatement() (*UnwindStatement, error) {
	if _, err := p.expect(tokUnwind); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokAs); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(tokIdent)
	if err != nil {
		return nil, newSyntaxError("expected variable name after UNWIND ... AS", p.cur().Pos)
	}
	return &UnwindStatement{Expr: expr, As: nameTok.Text}, nil
}

func (p *parser) parseWithStatement() (*WithStatement, error) {
	if _, err := p.expect(tokWith); err != nil {
		return nil, err
	}
	ws := &WithStatement{}
	if p.match(tokDistinct) {
		ws.Distinct = true
	}
	items, err := p.parseProjectItems()
	if err != nil {
		return nil, err
	}
	ws.Items = items

	if p.match(tokWhere) {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ws.Where = &expr
	}
	if err := p.parseOrderSkipLimit(&ws.OrderBy, &ws.Skip, &ws.Limit); err != nil {
		return nil, err
	}
	return ws, nil
}

func (p *parser) parseReturnStatement() (*ReturnStatement, error) {
	if _, err := p.expect(tokReturn); err != nil {
		return nil, err
	}
	rs := &ReturnStatement{}
	if p.match(tokDistinct) {
		rs.Distinct = true
	}
	items, err := p.parseProjectItems()
	if err != nil {
		return nil, err
	}
	rs.Items = items
	if err := p.parseOrderSkipLimit(&rs.OrderBy, &rs.Skip, &rs.Limit); err != nil {
		return nil, err
	}
	return rs, nil
}

func (p *parser) parseOrderSkipLimit(orderBy *[]OrderItem, skip, limit **Expression) error {
	if p.match(tokOrder) {
		if _, err := p.expect(tokBy); err != nil {
			return err
		}
		items, err := p.parseOrderItems()
		if err != nil {
			return err
		}
		*orderBy = items
	}
	if p.match(tokSkip) {
		expr, err := p.parseExpr()
		if err != nil {
			return err
		}
		*skip = &expr
	}
	if p.match(tokLimit) {
		expr, err := p.parseExpr()
		if err != nil {
			return err
		}
		*limit = &expr
	}
	return nil
}

func (p *parser) parseProjectItems() ([]ProjectItem, error) {
	var items []ProjectItem
	for {
		if p.is(tokStar) {
			p.advance()
			items = append(items, ProjectItem{Star: true})
		} else {
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			item := ProjectItem{Expr: expr}
			if p.match(tokAs) {
				aliasTok, err := p.expect(tokIdent)
				if err != nil {
					return nil, newSyntaxError("expected alias after AS", p.cur().Pos)
				}
				item.Alias = aliasTok.Text
			}
			items = append(items, item)
		}
		if !p.match(tokComma) {
			break
		}
	}
	return items, nil
}

func (p *parser) parseOrderItems() ([]OrderItem, error) {
	var items []OrderItem
	for {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		item := OrderItem{Expr: expr}
		if p.match(tokDesc) {
			item.Desc = true
		} else {
			p.match(tokAsc)
		}
		items = append(items, item)
		if !p.match(tokComma) {
			break
		}
	}
	return items, nil
}

// ---------------- patterns --------------------------------------------------

func (p *parser) parsePattern() (Pattern, error) {
	var pat Pattern
	node, err := p.parseNodePattern()
	if err != nil {
		return pat, err
	}
	pat.Nodes = append(pat.Nodes, node)

	for p.is(tokDash) || p.is(tokLArrow) {
		rel, err := p.parseRelPattern()
		if err != nil {
			return pat, err
		}
		pat.Rels = append(pat.Rels, rel)

		node, err := p.parseNodePattern()
		if err != nil {
			return pat, err
		}
		pat.Nodes = append(pat.Nodes, node)
	}
	return pat, nil
}

func (p *parser) parseNodePattern() (NodePattern, error) {
	var np NodePattern
	if _, err := p.expect(tokLParen); err != nil {
		return np, err
	}
	if p.is(tokIdent) {
		np.Variable = p.advance().Text
	}
	for p.match(tokColon) {
		labelTok, err := p.expect(tokIdent)
		if err != nil {
			return np, newSyntaxError("expected label after ':'", p.cur().Pos)
		}
		np.Labels = append(np.Labels, labelTok.Text)
	}
	if p.is(tokLBrace) {
		props, err := p.parsePropLiteralMap()
		if err != nil {
			return np, err
		}
		np.Props = props
	}
	if _, err := p.expect(tokRParen); err != nil {
		return np, err
	}
	return np, nil
}

// parseRelPattern parses -[r:TYPE*min..max {props}]->, <-[...]-  or -[...]-.
func (p *parser) parseRelPattern() (RelPattern, error) {
	rp := RelPattern{Dir: DirOut, MinHops: 1, MaxHops: 1}

	leftArrow := false
	switch {
	case p.is(tokLArrow):
		leftArrow = true
		p.advance()
	case p.is(tokDash):
		p.advance()
	default:
		return rp, newSyntaxError("expected '-' or '<-' to start relationship pattern", p.cur().Pos)
	}

	if _, err := p.expect(tokLBracket); err != nil {
		return rp, err
	}
	if p.is(tokIdent) {
		rp.Variable = p.advance().Text
	}
	if p.match(tokColon) {
		typeTok, err := p.expect(tokIdent)
		if err != nil {
			return rp, newSyntaxError("expected relationship type after ':'", p.cur().Pos)
		}
		rp.Type = typeTok.Text
	}
	if p.match(tokStar) {
		rp.VarLength = true
		rp.MinHops = 1
		rp.MaxHops = -1
		if p.is(tokInt) {
			n, _ := strconv.Atoi(p.advance().Text)
			rp.MinHops = n
			rp.MaxHops = n
		}
		if p.match(tokDotDot) {
			rp.MaxHops = -1
			if p.is(tokInt) {
				n, _ := strconv.Atoi(p.advance().Text)
				rp.MaxHops = n
			}
		}
	}
	if p.is(tokLBrace) {
		props, err := p.parsePropLiteralMap()
		if err != nil {
			return rp, err
		}
		rp.Props = props
	}
	if _, err := p.expect(tokRBracket); err != nil {
		return rp, err
	}

	if leftArrow {
		if _, err := p.expect(tokDash); err != nil {
			return rp, newSyntaxError("expected '-' to close '<-[...]-' pattern", p.cur().Pos)
		}
		rp.Dir = DirIn
	} else if p.match(tokArrow) {
		rp.Dir = DirOut
	} else if p.match(tokDash) {
		rp.Dir = DirBoth
	} else {
		return rp, newSyntaxError("expected '->' or '-' to close relationship pattern", p.cur().Pos)
	}
	return rp, nil
}

// parsePropLiteralMap parses '{' ident ':' Expr (',' ident ':' Expr)* '}'.
// Unlike a general map literal, keys are bare identifiers (no quoting).
func (p *parser) parsePropLiteralMap() (map[string]Expression, error) {
	if _, err := p.expect(tokLBrace); err != nil {
		return nil, err
	}
	props := make(map[string]Expression)
	for !p.is(tokRBrace) {
		keyTok, err := p.expect(tokIdent)
		if err != nil {
			return nil, newSyntaxError("expected property key", p.cur().Pos)
		}
		if _, err := p.expect(tokColon); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		props[keyTok.Text] = val
		if !p.match(tokComma) {
			break
		}
	}
	if _, err := p.expect(tokRBrace); err != nil {
		return nil, err
	}
	return props, nil
}

// ---------------- expressions -----------------------------------------------

func (p *parser) parseExpr() (Expression, error) { return p.parseOrExpr() }

func (p *parser) parseOrExpr() (Expression, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return Expression{}, err
	}
	if !p.is(tokOr) {
		return left, nil
	}
	operands := []Expression{left}
	for p.match(tokOr) {
		right, err := p.parseAndExpr()
		if err != nil {
			return Expression{}, err
		}
		operands = append(operands, right)
	}
	return orExpr(operands...), nil
}

func (p *parser) parseAndExpr() (Expression, error) {
	left, err := p.parseNotExpr()
	if err != nil {
		return Expression{}, err
	}
	if !p.is(tokAnd) {
		return left, nil
	}
	operands := []Expression{left}
	for p.match(tokAnd) {
		right, err := p.parseNotExpr()
		if err != nil {
			return Expression{}, err
		}
		operands = append(operands, right)
	}
	return andExpr(operands...), nil
}

func (p *parser) parseNotExpr() (Expression, error) {
	if p.match(tokNot) {
		inner, err := p.parseNotExpr()
		if err != nil {
			return Expression{}, err
		}
		return notExpr(inner), nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return Expression{}, err
	}
	var op CompOp
	switch p.cur().Kind {
	case tokEq:
		op = OpEq
	case tokNeq:
		op = OpNeq
	case tokLt:
		op = OpLt
	case tokGt:
		op = OpGt
	case tokLte:
		op = OpLte
	case tokGte:
		op = OpGte
	default:
		return left, nil
	}
	p.advance()
	right, err := p.parseAdditive()
	if err != nil {
		return Expression{}, err
	}
	return compExpr(left, op, right), nil
}

func (p *parser) parseAdditive() (Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return Expression{}, err
	}
	for p.is(tokPlus) || p.is(tokDash) {
		op := OpAdd
		if p.cur().Kind == tokDash {
			op = OpSub
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return Expression{}, err
		}
		left = arithExpr(left, op, right)
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return Expression{}, err
	}
	for p.is(tokStar) || p.is(tokSlash) {
		op := OpMul
		if p.cur().Kind == tokSlash {
			op = OpDiv
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return Expression{}, err
		}
		left = arithExpr(left, op, right)
	}
	return left, nil
}

// parseUnary desugars unary minus into `0 - x` per SPEC_FULL.md's resolution
// of the unary-minus open question, rather than a dedicated AST node.
func (p *parser) parseUnary() (Expression, error) {
	if p.match(tokDash) {
		inner, err := p.parseUnary()
		if err != nil {
			return Expression{}, err
		}
		return arithExpr(litExpr(Int(0)), OpSub, inner), nil
	}
	return p.parseLabelTest()
}

func (p *parser) parseLabelTest() (Expression, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return Expression{}, err
	}
	if expr.Kind == ExprVarRef && p.is(tokColon) {
		labelVar := expr.Variable
		for p.match(tokColon) {
			labelTok, err := p.expect(tokIdent)
			if err != nil {
				return Expression{}, newSyntaxError("expected label after ':'", p.cur().Pos)
			}
			check := Expression{Kind: ExprLabelCheck, LabelVar: labelVar, LabelName: labelTok.Text}
			if expr.Kind == ExprLabelCheck || expr.Kind == ExprAnd {
				expr = andExpr(expr, check)
			} else {
				expr = check
			}
		}
	}
	return expr, nil
}

func (p *parser) parsePrimary() (Expression, error) {
	t := p.cur()

	switch t.Kind {
	case tokParam:
		p.advance()
		return Expression{Kind: ExprParam, ParamName: t.Text}, nil

	case tokString:
		p.advance()
		return litExpr(Str(t.Text)), nil
	case tokInt:
		p.advance()
		n, err := strconv.ParseInt(t.Text, 10, 64)
		if err != nil {
			return Expression{}, newSyntaxError("invalid integer literal "+t.Text, t.Pos)
		}
		return litExpr(Int(n)), nil
	case tokFloat:
		p.advance()
		f, err := strconv.ParseFloat(t.Text, 64)
		if err != nil {
			return Expression{}, newSyntaxError("invalid float literal "+t.Text, t.Pos)
		}
		return litExpr(Float(f)), nil
	case tokTrue:
		p.advance()
		return litExpr(Bool(true)), nil
	case tokFalse:
		p.advance()
		return litExpr(Bool(false)), nil
	case tokNull:
		p.advance()
		return litExpr(Null()), nil

	case tokLParen:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return Expression{}, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return Expression{}, err
		}
		return inner, nil

	case tokLBracket:
		return p.parseListLiteral()

	case tokLBrace:
		return p.parseMapLiteral()

	case tokIdent:
		return p.parseIdentLedExpr()
	}

	return Expression{}, newSyntaxError("unexpected token "+tokenKindName(t.Kind)+" in expression", t.Pos)
}

func (p *parser) parseListLiteral() (Expression, error) {
	if _, err := p.expect(tokLBracket); err != nil {
		return Expression{}, err
	}
	var items []Expression
	for !p.is(tokRBracket) {
		item, err := p.parseExpr()
		if err != nil {
			return Expression{}, err
		}
		items = append(items, item)
		if !p.match(tokComma) {
			break
		}
	}
	if _, err := p.expect(tokRBracket); err != nil {
		return Expression{}, err
	}
	return Expression{Kind: ExprList, List: items}, nil
}

func (p *parser) parseMapLiteral() (Expression, error) {
	if _, err := p.expect(tokLBrace); err != nil {
		return Expression{}, err
	}
	var keys []string
	var vals []Expression
	for !p.is(tokRBrace) {
		keyTok, err := p.expect(tokIdent)
		if err != nil {
			return Expression{}, newSyntaxError("expected map key", p.cur().Pos)
		}
		if _, err := p.expect(tokColon); err != nil {
			return Expression{}, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return Expression{}, err
		}
		keys = append(keys, keyTok.Text)
		vals = append(vals, val)
		if !p.match(tokComma) {
			break
		}
	}
	if _, err := p.expect(tokRBrace); err != nil {
		return Expression{}, err
	}
	return Expression{Kind: ExprMap, MapKeys: keys, MapVals: vals}, nil
}

// parseIdentLedExpr handles the four identifier-led primaries: dotted
// property access, function calls (including count(*) and DISTINCT), and
// bare variable references.
func (p *parser) parseIdentLedExpr() (Expression, error) {
	name := p.advance().Text

	if p.is(tokDot) {
		var keys []string
		for p.match(tokDot) {
			keyTok, err := p.expect(tokIdent)
			if err != nil {
				return Expression{}, newSyntaxError("expected property name after '.'", p.cur().Pos)
			}
			keys = append(keys, keyTok.Text)
		}
		return propExpr(name, keys), nil
	}

	if p.is(tokLParen) {
		p.advance()
		if isCountName(name) && p.is(tokStar) {
			p.advance()
			if _, err := p.expect(tokRParen); err != nil {
				return Expression{}, err
			}
			return Expression{Kind: ExprCountStar}, nil
		}
		distinct := p.match(tokDistinct)
		var args []Expression
		if !p.is(tokRParen) {
			for {
				arg, err := p.parseExpr()
				if err != nil {
					return Expression{}, err
				}
				args = append(args, arg)
				if !p.match(tokComma) {
					break
				}
			}
		}
		if _, err := p.expect(tokRParen); err != nil {
			return Expression{}, err
		}
		return funcCallExpr(name, distinct, args...), nil
	}

	return varRefExpr(name), nil
}

func isCountName(name string) bool {
	return len(name) == 5 &&
		(name[0] == 'c' || name[0] == 'C') &&
		(name[1] == 'o' || name[1] == 'O') &&
		(name[2] == 'u' || name[2] == 'U') &&
		(name[3] == 'n' || name[3] == 'N') &&
		(name[4] == 't' || name[4] == 'T')
}
