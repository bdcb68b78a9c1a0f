package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"golang.org/x/term"
)

// Func asks the user a yes/no question and returns the answer. It blocks
// until the question is answered.
type Func func(message string) (bool, error)

var (
	Yes Func = func(string) (bool, error) { return true, nil }
	No  Func = func(string) (bool, error) { return false, nil }
)

// Terminal returns a Func that uses an interactive survey prompt when in is
// a terminal, and otherwise writes the question to out and reads a single
// line answer from in.
func Terminal(in *os.File, out io.Writer) Func {
	if term.IsTerminal(int(in.Fd())) {
		return func(message string) (bool, error) {
			answer := false
			prompt := &survey.Confirm{Message: message}
			if err := survey.AskOne(prompt, &answer); err != nil {
				return false, err
			}

			return answer, nil
		}
	}

	return Lines(in, out)
}

// Lines returns a Func that reads answers line by line from in. Anything
// other than "y" or "yes" is a no, as is reaching the end of the input.
func Lines(in io.Reader, out io.Writer) Func {
	reader := bufio.NewReader(in)

	return func(message string) (bool, error) {
		if _, err := fmt.Fprintf(out, "%s (y/N) ", message); err != nil {
			return false, err
		}

		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

// Recorder is a scripted Func for tests. It answers with Answers in order,
// falling back to Default once they run out, and keeps every question asked.
type Recorder struct {
	Answers  []bool
	Default  bool
	Messages []string
}

func (r *Recorder) Confirm(message string) (bool, error) {
	r.Messages = append(r.Messages, message)

	if len(r.Answers) == 0 {
		return r.Default, nil
	}

	answer := r.Answers[0]
	r.Answers = r.Answers[1:]
	return answer, nil
}

// Script returns a Recorder answering with answers in order.
func Script(answers ...bool) *Recorder {
	return &Recorder{Answers: answers}
}
