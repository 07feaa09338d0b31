package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/Veraticus/sift/internal/model"
)

var (
	severityPattern = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	openTagPattern  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// payeePrefixes are card-network noise stripped from transaction names.
var payeePrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

// OFX reads bank and credit card statements. Each account becomes a project container and each
// statement line an item carrying payment fields.
type OFX struct{}

// NewOFX creates an OFX/QFX source.
func NewOFX() *OFX {
	return &OFX{}
}

// Name implements Source.
func (s *OFX) Name() string { return "ofx" }

// Parse implements Source.
func (s *OFX) Parse(ctx context.Context, r io.Reader) (*model.RawImport, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ofx: failed to read input: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("ofx: failed to parse statement: %w", err)
	}

	var gen ids
	raw := newRawImport(s.Name())

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.addStatement(raw, &gen, "Account "+string(stmt.BankAcctFrom.AcctID), stmt.BankTranList)
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.addStatement(raw, &gen, "Card "+string(stmt.CCAcctFrom.AcctID), stmt.BankTranList)
	}

	slog.Info("Parsed OFX import",
		"accounts", len(raw.Containers),
		"transactions", len(raw.Items))
	return raw, nil
}

func (s *OFX) addStatement(raw *model.RawImport, gen *ids, title string, list *ofxgo.TransactionList) {
	account := model.RawImportContainer{
		TempID: gen.container(),
		Type:   model.ContainerProject,
		Title:  title,
	}
	raw.Containers = append(raw.Containers, account)
	if list == nil {
		return
	}

	for _, tx := range list.Transactions {
		raw.Items = append(raw.Items, convertTransaction(tx, gen.item(), account.TempID))
	}
}

// convertTransaction maps a statement line onto payment fields.
func convertTransaction(tx ofxgo.Transaction, tempID, parent string) model.RawImportItem {
	payee := payeeName(tx)
	item := model.RawImportItem{
		TempID:       tempID,
		ParentTempID: parent,
		Title:        "Payment " + payee,
		Metadata:     map[string]string{"fitid": string(tx.FiTID)},
	}

	record := func(name, value, hint string) {
		if value = strings.TrimSpace(value); value != "" {
			item.FieldRecordings = append(item.FieldRecordings, model.FieldRecording{
				FieldName:  name,
				Value:      value,
				RenderHint: hint,
			})
		}
	}

	record("Amount", tx.TrnAmt.FloatString(2), "currency")
	record("Paid On", tx.DtPosted.Format("2006-01-02"), "date")
	record("Payer", payee, "")
	record("Reference", string(tx.FiTID), "")
	record("Payment Method", fmt.Sprintf("%v", tx.TrnType), "")
	record("Check Number", string(tx.CheckNum), "")
	record("Memo", string(tx.Memo), "")
	return item
}

// preprocessOFX fixes formatting issues that trip the strict parser.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityPattern.ReplaceAllStringFunc(content, strings.ToUpper)
	return openTagPattern.ReplaceAllString(content, "$1>")
}

// payeeName prefers PAYEE, then NAME with card prefixes removed, then MEMO for generic names.
func payeeName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := strings.TrimSpace(string(tx.Name))
	if tx.Memo != "" && isGenericDescription(name) {
		name = strings.TrimSpace(string(tx.Memo))
	}

	upper := strings.ToUpper(name)
	for _, prefix := range payeePrefixes {
		if strings.HasPrefix(upper, prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Drop a leading "MM/DD " date.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}
	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}
