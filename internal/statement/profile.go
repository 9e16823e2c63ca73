package statement

type amountMode int

const (
	// amountSingle: one signed column, credits positive.
	amountSingle amountMode = iota
	// amountSplit: separate withdrawal and deposit columns.
	amountSplit
)

// Profile describes the column layout of one bank's statement export.
type Profile struct {
	Name         string
	DateCol      string
	DateLayouts  []string
	DescCol      string
	ReferenceCol string // optional
	AmountMode   amountMode
	AmountCol    string // amountSingle
	DebitCol     string // amountSplit
	CreditCol    string // amountSplit
}

func (p Profile) requiredCols() []string {
	cols := []string{p.DateCol, p.DescCol}

	switch p.AmountMode {
	case amountSingle:
		cols = append(cols, p.AmountCol)
	case amountSplit:
		cols = append(cols, p.DebitCol, p.CreditCol)
	}

	return cols
}

// profiles are tried in order; more specific layouts come first.
var profiles = []Profile{
	{
		Name:         "hdfc",
		DateCol:      "Date",
		DateLayouts:  []string{"02/01/06", "02/01/2006"},
		DescCol:      "Narration",
		ReferenceCol: "Chq./Ref.No.",
		AmountMode:   amountSplit,
		DebitCol:     "Withdrawal Amt.",
		CreditCol:    "Deposit Amt.",
	},
	{
		Name:         "sbi",
		DateCol:      "Txn Date",
		DateLayouts:  []string{"2 Jan 2006", "02 Jan 2006", "02-01-2006"},
		DescCol:      "Description",
		ReferenceCol: "Ref No./Cheque No.",
		AmountMode:   amountSplit,
		DebitCol:     "Debit",
		CreditCol:    "Credit",
	},
	{
		Name:         "icici",
		DateCol:      "Transaction Date",
		DateLayouts:  []string{"02/01/2006", "02-01-2006"},
		DescCol:      "Transaction Remarks",
		ReferenceCol: "Cheque Number",
		AmountMode:   amountSplit,
		DebitCol:     "Withdrawal Amount (INR )",
		CreditCol:    "Deposit Amount (INR )",
	},
	{
		Name:         "generic",
		DateCol:      "Date",
		DateLayouts:  []string{"2006-01-02", "02/01/2006", "02-01-2006"},
		DescCol:      "Description",
		ReferenceCol: "Reference",
		AmountMode:   amountSingle,
		AmountCol:    "Amount",
	},
}
