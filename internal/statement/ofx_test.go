package statement

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tuitionStatement = `
OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>Info
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>JMD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>9988776655
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240105120000[0:GMT]
<TRNAMT>15000.00
<FITID>FIT-001
<NAME>TRANSFER IN
<MEMO>Tuition student s-1042
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240106120000[0:GMT]
<TRNAMT>-300.00
<FITID>FIT-002
<NAME>BANK FEE
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240107120000[0:GMT]
<TRNAMT>5000.00
<FITID>FIT-003
<NAME>Student:ab12 deposit
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240108120000[0:GMT]
<TRNAMT>250.00
<FITID>FIT-004
<NAME>INTEREST
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>19950.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestParserCredits(t *testing.T) {
	parser, err := NewParser("")
	require.NoError(t, err)

	credits, err := parser.Credits(strings.NewReader(tuitionStatement))
	require.NoError(t, err)
	require.Len(t, credits, 3, "debits are skipped")

	assert.Equal(t, "FIT-001", credits[0].FITID)
	assert.Equal(t, "9988776655", credits[0].Account)
	assert.Equal(t, 15000.0, credits[0].Amount)
	assert.Equal(t, "s-1042", credits[0].StudentID, "memo carries the id")
	assert.Equal(t, 2024, credits[0].Posted.Year())

	assert.Equal(t, "ab12", credits[1].StudentID, "falls back to the name")
	assert.Empty(t, credits[2].StudentID)
}

func TestNormaliseSeverity(t *testing.T) {
	cases := []struct{ in, want string }{
		{"<SEVERITY>Info\n", "<SEVERITY>INFO\n"},
		{"<SEVERITY>warn\r\n", "<SEVERITY>WARN\r\n"},
		{"<SEVERITY>Error</SEVERITY>", "<SEVERITY>ERROR</SEVERITY>"},
		{"<SEVERITY>INFO\n", "<SEVERITY>INFO\n"},
		{"<MEMO>Information session\n", "<MEMO>Information session\n"},
		{"<SEVERITY>Informational\n", "<SEVERITY>Informational\n"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, normalise(tc.in), tc.in)
	}
}

func TestParserCustomPattern(t *testing.T) {
	parser, err := NewParser(`REF-(\w+)`)
	require.NoError(t, err)
	assert.Equal(t, "77", parser.studentID("payment REF-77"))

	_, err = NewParser(`no-group`)
	assert.Error(t, err)

	_, err = NewParser(`(`)
	assert.Error(t, err)
}

func TestParserRejectsGarbage(t *testing.T) {
	parser, err := NewParser("")
	require.NoError(t, err)

	_, err = parser.Credits(strings.NewReader("not an ofx file"))
	assert.Error(t, err)
}
