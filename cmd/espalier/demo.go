package main

import (
	"fmt"
	"net/http"

	"github.com/aretw0/espalier/internal/config"
	"github.com/aretw0/espalier/pkg/flow"
)

// demoRegistry builds the signup flow served by `espalier serve`: three
// leaves under one branch, advanced in order, finishing at /welcome.
func demoRegistry(cfg *config.Config) *flow.Registry {
	account := flow.NewLeaf("account",
		flow.WithHandler(func(in *flow.Instance, w http.ResponseWriter, r *http.Request) (flow.Outcome, error) {
			if r.Method != http.MethodPost {
				return demoForm("Create your account", "email"), nil
			}
			in.State().OnComplete = "/welcome"
			in.State().Set("email", r.PostFormValue("email"))
			return flow.Completed{}, nil
		}))

	profile := flow.NewLeaf("profile",
		flow.WithHandler(func(in *flow.Instance, w http.ResponseWriter, r *http.Request) (flow.Outcome, error) {
			if r.Method != http.MethodPost {
				return demoForm("Tell us about yourself", "name"), nil
			}
			in.State().Set("name", r.PostFormValue("name"))
			return flow.Completed{}, nil
		}))

	confirm := flow.NewLeaf("confirm",
		flow.WithHandler(func(in *flow.Instance, w http.ResponseWriter, r *http.Request) (flow.Outcome, error) {
			if r.Method != http.MethodPost {
				email := in.State().GetString("email")
				name := in.State().GetString("name")
				body := fmt.Sprintf(`<h1>Confirm</h1><p>%s (%s)</p><form method="post"><button>Finish</button></form>`, name, email)
				return flow.RespondHTML(body), nil
			}
			return flow.Completed{}, nil
		}))

	signup := flow.NewBranch("signup",
		flow.WithChildren(account, profile, confirm),
		flow.WithTransition(flow.NextSibling()))

	reg := flow.NewRegistry(
		flow.WithBasePath(cfg.BasePath),
		flow.WithSessionParam(cfg.SessionParam),
	)
	if err := reg.RegisterEntryPoint(signup); err != nil {
		panic(err)
	}
	return reg
}

func demoForm(title, field string) flow.Respond {
	body := fmt.Sprintf(`<h1>%s</h1><form method="post"><input name=%q><button>Next</button></form>`, title, field)
	return flow.RespondHTML(body)
}

func welcomeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<h1>Welcome aboard!</h1>")
}
