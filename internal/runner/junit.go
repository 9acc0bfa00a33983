package runner

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type junitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Name     string           `xml:"name,attr"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Errors   int              `xml:"errors,attr"`
	Skipped  int              `xml:"skipped,attr"`
	Time     string           `xml:"time,attr"`
	Suites   []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name     string          `xml:"name,attr"`
	File     string          `xml:"file,attr,omitempty"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Errors   int             `xml:"errors,attr"`
	Skipped  int             `xml:"skipped,attr"`
	Time     string          `xml:"time,attr"`
	Cases    []junitTestCase `xml:"testcase"`
	Error    *junitMessage   `xml:"error,omitempty"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitMessage `xml:"failure,omitempty"`
	Skipped   *junitMessage `xml:"skipped,omitempty"`
}

type junitMessage struct {
	Message string `xml:"message,attr,omitempty"`
	Body    string `xml:",chardata"`
}

// WriteJUnit writes res as a JUnit XML report.
func WriteJUnit(w io.Writer, res *Result) error {
	doc := junitTestSuites{
		Name:    "hugotest",
		Tests:   res.Total,
		Skipped: res.Skipped,
		Time:    seconds(res.Duration),
	}
	for _, sr := range res.Suites {
		js := junitTestSuite{
			Name:  sr.Name,
			File:  sr.Fixture,
			Tests: len(sr.Tests),
			Time:  seconds(sr.Duration),
		}
		if sr.Err != nil {
			js.Errors = 1
			js.Error = &junitMessage{Message: sr.Err.Error()}
			doc.Errors++
		}
		for _, tr := range sr.Tests {
			tc := junitTestCase{Name: tr.Title, Classname: sr.Name, Time: seconds(tr.Duration)}
			switch tr.Status {
			case Failed:
				js.Failures++
				body := tr.Message
				if tr.Diff != "" {
					body += "\n" + tr.Diff
				}
				tc.Failure = &junitMessage{Message: firstLine(tr.Message), Body: body}
			case Skipped:
				js.Skipped++
				tc.Skipped = &junitMessage{Message: "filtered"}
			}
			js.Cases = append(js.Cases, tc)
		}
		doc.Failures += js.Failures
		doc.Suites = append(doc.Suites, js)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode junit report: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteJUnitFile writes the report to path, creating parent directories.
func WriteJUnitFile(path string, res *Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJUnit(f, res); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
