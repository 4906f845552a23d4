package integrations

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/lexfirm/google-services/core"
)

// DefaultBankStatementRange is where the firm's bank-export template keeps
// transaction rows: date, description, amount, type.
const DefaultBankStatementRange = "Extrato!A2:D"

type TransactionKind string

const (
	TransactionCredit TransactionKind = "credit"
	TransactionDebit  TransactionKind = "debit"
)

type Transaction struct {
	Date        time.Time
	Description string
	Amount      float64
	Kind        TransactionKind
}

// TransactionRecorder receives parsed transactions; the CRM's financial
// module supplies the implementation.
type TransactionRecorder interface {
	Record(ctx context.Context, userID string, tx Transaction) error
}

type RowError struct {
	Row    int
	Reason string
}

type BankStatementImportResult struct {
	Imported int
	Skipped  int
	Errors   []RowError
}

type BankStatementImporterConfig struct {
	Tokens    core.AccessTokenGetter
	Client    SheetsAPI
	Recorder  TransactionRecorder
	Logger    core.Logger
	ReadRange string
}

// BankStatementImporter reads exported bank statements from a spreadsheet and
// feeds them to the financial module. One bad row never aborts the import;
// it is counted and reported instead.
type BankStatementImporter struct {
	tokens    core.AccessTokenGetter
	client    SheetsAPI
	recorder  TransactionRecorder
	logger    core.Logger
	readRange string
}

func NewBankStatementImporter(cfg BankStatementImporterConfig) (*BankStatementImporter, error) {
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("integrations: token getter is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("integrations: sheets client is required")
	}
	if cfg.Recorder == nil {
		return nil, fmt.Errorf("integrations: transaction recorder is required")
	}
	readRange := strings.TrimSpace(cfg.ReadRange)
	if readRange == "" {
		readRange = DefaultBankStatementRange
	}
	return &BankStatementImporter{
		tokens:    cfg.Tokens,
		client:    cfg.Client,
		recorder:  cfg.Recorder,
		logger:    glog.Ensure(cfg.Logger),
		readRange: readRange,
	}, nil
}

func (s *BankStatementImporter) ImportTransactions(ctx context.Context, id core.Identity, spreadsheetID string) (BankStatementImportResult, error) {
	if s == nil {
		return BankStatementImportResult{}, fmt.Errorf("integrations: bank statement importer is nil")
	}
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return BankStatementImportResult{}, fmt.Errorf("integrations: spreadsheet id is required")
	}

	accessToken, err := s.tokens.GetValidAccessToken(ctx, id, core.ServiceSheets)
	if err != nil {
		return BankStatementImportResult{}, err
	}
	values, err := s.client.GetValues(ctx, accessToken, spreadsheetID, s.readRange)
	if err != nil {
		return BankStatementImportResult{}, err
	}

	result := BankStatementImportResult{}
	for index, row := range values.Values {
		rowNumber := index + 2 // data starts at row 2 in the template
		tx, parseErr := parseTransactionRow(row)
		if parseErr != nil {
			result.Skipped++
			result.Errors = append(result.Errors, RowError{Row: rowNumber, Reason: parseErr.Error()})
			continue
		}
		if recordErr := s.recorder.Record(ctx, id.UserID, tx); recordErr != nil {
			result.Skipped++
			result.Errors = append(result.Errors, RowError{Row: rowNumber, Reason: recordErr.Error()})
			s.logger.Error("bank transaction record failed",
				"user_id", id.UserID, "row", rowNumber, "error", recordErr)
			continue
		}
		result.Imported++
	}
	return result, nil
}

var transactionDateLayouts = []string{"02/01/2006", "2006-01-02", "02-01-2006"}

func parseTransactionRow(row []any) (Transaction, error) {
	if len(row) < 3 {
		return Transaction{}, fmt.Errorf("integrations: row needs date, description and amount")
	}

	date, err := parseTransactionDate(cellString(row[0]))
	if err != nil {
		return Transaction{}, err
	}
	description := strings.TrimSpace(cellString(row[1]))
	if description == "" {
		return Transaction{}, fmt.Errorf("integrations: description is required")
	}
	amount, err := parseTransactionAmount(cellString(row[2]))
	if err != nil {
		return Transaction{}, err
	}

	kind := TransactionCredit
	if amount < 0 {
		kind = TransactionDebit
	}
	if len(row) > 3 {
		parsed, parseErr := parseTransactionKind(cellString(row[3]))
		if parseErr != nil {
			return Transaction{}, parseErr
		}
		if parsed != "" {
			kind = parsed
		}
	}

	return Transaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		Kind:        kind,
	}, nil
}

func parseTransactionDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("integrations: date is required")
	}
	for _, layout := range transactionDateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("integrations: unrecognized date %q", value)
}

// parseTransactionAmount accepts both Brazilian ("1.234,56") and plain
// ("1234.56") decimal notation, with an optional R$ prefix.
func parseTransactionAmount(value string) (float64, error) {
	cleaned := strings.TrimSpace(value)
	cleaned = strings.TrimPrefix(cleaned, "R$")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return 0, fmt.Errorf("integrations: amount is required")
	}
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("integrations: unrecognized amount %q", value)
	}
	return amount, nil
}

func parseTransactionKind(value string) (TransactionKind, error) {
	normalized := strings.TrimSpace(strings.ToLower(value))
	switch normalized {
	case "":
		return "", nil
	case "credit", "credito", "crédito", "c":
		return TransactionCredit, nil
	case "debit", "debito", "débito", "d":
		return TransactionDebit, nil
	}
	return "", fmt.Errorf("integrations: unrecognized transaction type %q", value)
}

func cellString(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case fmt.Stringer:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(typed)
	}
}
