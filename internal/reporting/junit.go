package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spboyer/mkcheck/internal/checks"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one check run.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one stage.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

// JUnitFailure represents a failed stage.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitSkipped marks a stage as skipped.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts a check result to JUnit XML format. started is
// the time the run began.
func ConvertToJUnit(res *checks.Result, started time.Time) *JUnitTestSuites {
	suite := JUnitTestSuite{
		Name:      "mkcheck " + res.Path,
		Timestamp: started.UTC().Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "path", Value: res.Path},
			{Name: "kind", Value: string(res.Kind)},
			{Name: "runtime", Value: checks.RuntimeIdentity()},
		},
	}

	var total time.Duration
	for _, s := range res.Stages {
		total += s.Duration
		tc := JUnitTestCase{
			Name:      string(s.Name),
			Classname: res.Path,
			Time:      s.Duration.Seconds(),
		}

		switch s.Status {
		case checks.StatusFailed:
			suite.Failures++
			tc.Failure = &JUnitFailure{
				Message: failureMessage(res),
				Type:    string(res.Kind),
				Body:    res.Message,
			}
		case checks.StatusSkipped:
			suite.Skipped++
			tc.Skipped = &JUnitSkipped{Message: "not run"}
		case checks.StatusWarning:
			tc.SystemOut = strings.Join(res.Warnings, "\n")
		}

		suite.TestCases = append(suite.TestCases, tc)
	}
	suite.Tests = len(suite.TestCases)
	suite.Time = total.Seconds()

	return &JUnitTestSuites{
		Tests:      suite.Tests,
		Failures:   suite.Failures,
		Time:       suite.Time,
		TestSuites: []JUnitTestSuite{suite},
	}
}

func failureMessage(res *checks.Result) string {
	if res.Err == nil {
		return res.Stage
	}
	return fmt.Sprintf("%s: %v", res.Stage, res.Err)
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(res *checks.Result, started time.Time, path string) error {
	suites := ConvertToJUnit(res, started)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0644)
}
