package web

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

func Home(flash, defaultSession string, sessions []SessionSummary) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!doctype html>
<html lang="fr">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Planning Poker</title>
    <style>` + baseStyles + `</style>
  </head>
  <body>
    <main class="shell">
      <header class="hero">
        <span class="tag">Planning Poker</span>
        <h1>Estimate together, reveal at once.</h1>
        <p>Open a session, share the code, vote on every phase.</p>
      </header>
`)
		if flash != "" {
			b.WriteString(`      <p class="flash">` + esc(flash) + `</p>
`)
		}
		b.WriteString(`      <section class="panel">
        <h2>Start a session</h2>
        <button id="createSession" class="primary">New session</button>
`)
		if defaultSession != "" {
			b.WriteString(`        <a class="secondary" href="` + esc(sessionPath(defaultSession)) + `">Open the main session</a>
`)
		}
		b.WriteString(`        <div id="createResult" class="result"></div>
      </section>

      <section class="panel">
        <h2>Join with a code</h2>
        <form id="joinForm" class="row">
          <input name="code" placeholder="Join code" autocomplete="off" required/>
          <button type="submit" class="secondary">Open</button>
        </form>
      </section>

      <section class="panel">
        <h2>Active sessions</h2>
        <ul class="sessions">
`)
		if len(sessions) == 0 {
			b.WriteString(`          <li class="muted">No sessions yet.</li>
`)
		}
		for _, session := range sessions {
			state := "voting"
			if session.Revealed {
				state = "revealed"
			}
			b.WriteString(`          <li><a href="` + esc(sessionPath(session.ID)) + `">` + esc(session.ID) + `</a>` +
				` <code>` + esc(session.JoinCode) + `</code>` +
				` <span class="muted">` + itoa(session.Participants) + ` participants, ` + state + `</span></li>
`)
		}
		b.WriteString(`        </ul>
      </section>
    </main>

    <script>
      const createBtn = document.getElementById("createSession");
      const createResult = document.getElementById("createResult");
      const joinForm = document.getElementById("joinForm");

      createBtn.addEventListener("click", async () => {
        createResult.textContent = "Creating session...";
        const res = await fetch("/api/sessions", { method: "POST" });
        const data = await res.json();
        if (!res.ok) {
          createResult.textContent = data.error || "Failed to create session.";
          return;
        }
        window.location.href = "/sessions/" + encodeURIComponent(data.session_id);
      });

      joinForm.addEventListener("submit", (event) => {
        event.preventDefault();
        const code = joinForm.elements.code.value.trim();
        if (code) {
          window.location.href = "/sessions/" + encodeURIComponent(code);
        }
      });
    </script>
  </body>
</html>
`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

const baseStyles = `
body { font-family: system-ui, sans-serif; margin: 0; background: #f4f5f7; color: #1a1a1a; }
.shell { max-width: 960px; margin: 0 auto; padding: 24px; }
.hero h1 { margin: 8px 0; }
.tag { font-size: 12px; text-transform: uppercase; letter-spacing: .1em; color: #4dabf7; }
.panel { background: #fff; border-radius: 8px; padding: 16px; margin: 16px 0; box-shadow: 0 1px 2px rgba(0,0,0,.08); }
.row { display: flex; gap: 8px; flex-wrap: wrap; align-items: center; }
.primary, .secondary, .vote { border: 0; border-radius: 6px; padding: 8px 12px; cursor: pointer; text-decoration: none; }
.primary { background: #4dabf7; color: #fff; }
.secondary { background: #e9ecef; color: #1a1a1a; }
.vote { background: #e9ecef; min-width: 44px; }
.vote.selected { background: #51cf66; color: #fff; }
.vote:disabled { opacity: .5; cursor: default; }
.flash, .error { color: #c92a2a; }
.muted { color: #868e96; }
table { width: 100%; border-collapse: collapse; }
td, th { padding: 6px; border-bottom: 1px solid #e9ecef; text-align: left; vertical-align: top; }
.legend li { margin: 2px 0; }
`
