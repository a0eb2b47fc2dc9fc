// Command melody-auth signs in, registers or resets a password against a
// running Melody server from the terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shandysiswandi/melody/internal/authflow"
	"github.com/shandysiswandi/melody/internal/pkg/validator"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

func main() {
	home, _ := os.UserHomeDir()

	server := pflag.String("server", "http://localhost:3000", "Melody server base URL")
	prefs := pflag.String("prefs", filepath.Join(home, ".melody", "preferences.yaml"), "preferences file")
	timeout := pflag.Duration("timeout", authflow.DefaultTimeout, "timeout for each network call")
	pflag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *server, *prefs, *timeout); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, errQuit) {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var errQuit = errors.New("quit")

func run(ctx context.Context, server, prefsPath string, timeout time.Duration) error {
	v, err := validator.NewV10Validator()
	if err != nil {
		return err
	}

	client := authflow.NewHTTPClient(server, nil)
	flow, err := authflow.New(ctx, authflow.Dependency{
		Codes:       authflow.NewHTTPCodeService(client),
		Identity:    authflow.NewHTTPIdentityProvider(client),
		Preferences: authflow.NewFilePreferences(prefsPath),
		Captcha:     authflow.NewRandomCaptcha(),
		Validator:   v,
		Timeout:     timeout,
	})
	if err != nil {
		return err
	}

	p := &prompter{in: bufio.NewReader(os.Stdin), out: os.Stdout}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch st := flow.State().(type) {
		case authflow.Idle:
			p.report(st.Error, st.Notice)
			form, err := p.form(st, flow.Captcha())
			if err != nil {
				return err
			}
			_, err = flow.Submit(ctx, form)
			if err != nil {
				return err
			}

		case authflow.AwaitingCodeEntry:
			p.report(st.Error, st.Notice)
			code, err := p.line(fmt.Sprintf("Code sent to %s ([r]esend, [b]ack): ", st.Email))
			if err != nil {
				return err
			}
			switch code {
			case "r":
				_, err = flow.Resend(ctx)
			case "b":
				_, err = flow.Back()
			default:
				_, err = flow.EnterCode(ctx, code)
			}
			if err != nil {
				return err
			}

		case authflow.PasswordResetPrompt:
			p.report(st.Error, "")
			pw, err := p.secret("New password ([b]ack): ")
			if err != nil {
				return err
			}
			if pw == "b" {
				if _, err := flow.Back(); err != nil {
					return err
				}
				continue
			}
			confirm, err := p.secret("Confirm password: ")
			if err != nil {
				return err
			}
			if _, err := flow.ResetPassword(ctx, pw, confirm); err != nil {
				return err
			}

		case authflow.Authenticated:
			fmt.Fprintf(p.out, "Signed in as %s\n", st.Email)
			return nil

		default:
			return fmt.Errorf("unexpected state %T", st)
		}
	}
}

type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *prompter) report(errMsg, notice string) {
	if notice != "" {
		fmt.Fprintln(p.out, notice)
	}
	if errMsg != "" {
		fmt.Fprintln(p.out, "!", errMsg)
	}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	s, err := p.in.ReadString('\n')
	if err != nil && (s == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// secret hides input when stdin is a terminal.
func (p *prompter) secret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return p.line(label)
	}

	fmt.Fprint(p.out, label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (p *prompter) form(st authflow.Idle, captcha string) (authflow.Form, error) {
	choice, err := p.line("[l]ogin, [r]egister, [f]orgot password or [q]uit: ")
	if err != nil {
		return authflow.Form{}, err
	}

	form := authflow.Form{Intent: authflow.IntentLogin}
	switch strings.ToLower(strings.TrimSpace(choice)) {
	case "", "l":
	case "r":
		form.Intent = authflow.IntentRegister
	case "f":
		form.Intent = authflow.IntentForgotPassword
	case "q":
		return authflow.Form{}, errQuit
	default:
		return p.form(st, captcha)
	}

	label := "Email: "
	if st.Email != "" {
		label = fmt.Sprintf("Email [%s]: ", st.Email)
	}
	if form.Email, err = p.line(label); err != nil {
		return form, err
	}
	if strings.TrimSpace(form.Email) == "" {
		form.Email = st.Email
	}

	if form.Intent != authflow.IntentForgotPassword {
		if form.Password, err = p.secret("Password: "); err != nil {
			return form, err
		}
	}
	if form.Intent == authflow.IntentRegister {
		if form.Confirm, err = p.secret("Confirm password: "); err != nil {
			return form, err
		}
	}
	if form.Intent == authflow.IntentLogin {
		remember, err := p.line("Remember me? [y/N]: ")
		if err != nil {
			return form, err
		}
		form.RememberMe = strings.EqualFold(strings.TrimSpace(remember), "y")
	}

	form.Captcha, err = p.line(fmt.Sprintf("Type the CAPTCHA %s: ", captcha))
	return form, err
}
