// Package statement extracts tuition credits from bank statement exports.
package statement

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
)

// DefaultStudentPattern finds "STUDENT 1234", "student:abc-9" and similar in a
// memo or payee name. The first capture group is the student id.
const DefaultStudentPattern = `(?i)\bstudent[\s:#-]*([A-Za-z0-9][A-Za-z0-9-]*)`

var (
	// Matches the SGML form (<SEVERITY>Info) and the closed XML form alike.
	severityFix = regexp.MustCompile(`(?i)(<SEVERITY>\s*)(Info|Warn|Error)\b`)
	openTagFix  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Credit is money received on the school's account.
type Credit struct {
	FITID   string
	Account string
	Posted  time.Time
	Amount  float64
	Name    string
	Memo    string
	// StudentID is empty when neither name nor memo names a student.
	StudentID string
}

// Parser reads OFX/QFX statements.
type Parser struct {
	student *regexp.Regexp
}

// NewParser builds a parser matching student ids with pattern. An empty pattern
// uses DefaultStudentPattern.
func NewParser(pattern string) (*Parser, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultStudentPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile student pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("student pattern %q needs a capture group", pattern)
	}
	return &Parser{student: re}, nil
}

// Credits returns every positive bank or card transaction in the statement, in
// statement order.
func (p *Parser) Credits(r io.Reader) ([]Credit, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read statement: %w", err)
	}
	resp, err := ofxgo.ParseResponse(strings.NewReader(normalise(string(raw))))
	if err != nil {
		return nil, fmt.Errorf("parse statement: %w", err)
	}

	var credits []Credit
	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		credits = p.collect(credits, string(stmt.BankAcctFrom.AcctID), stmt.BankTranList.Transactions)
	}
	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		credits = p.collect(credits, string(stmt.CCAcctFrom.AcctID), stmt.BankTranList.Transactions)
	}
	return credits, nil
}

func (p *Parser) collect(out []Credit, account string, txns []ofxgo.Transaction) []Credit {
	for _, tx := range txns {
		amount, _ := tx.TrnAmt.Float64()
		if amount <= 0 {
			continue
		}
		name := string(tx.Name)
		if tx.Payee != nil && tx.Payee.Name != "" {
			name = string(tx.Payee.Name)
		}
		c := Credit{
			FITID:   string(tx.FiTID),
			Account: account,
			Posted:  tx.DtPosted.Time,
			Amount:  amount,
			Name:    strings.TrimSpace(name),
			Memo:    strings.TrimSpace(string(tx.Memo)),
		}
		c.StudentID = p.studentID(c.Memo)
		if c.StudentID == "" {
			c.StudentID = p.studentID(c.Name)
		}
		out = append(out, c)
	}
	return out
}

func (p *Parser) studentID(text string) string {
	m := p.student.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// normalise repairs the SGML quirks banks commonly ship.
func normalise(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityFix.ReplaceAllStringFunc(content, func(m string) string {
		sub := severityFix.FindStringSubmatch(m)
		return sub[1] + strings.ToUpper(sub[2])
	})
	return openTagFix.ReplaceAllString(content, "$1>")
}
