package web

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// SessionPage renders the voting board. The scale legend and phase list are
// server-rendered; votes and totals come from websocket snapshots.
func SessionPage(data SessionPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!doctype html>
<html lang="fr">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Planning Poker - ` + esc(data.SessionID) + `</title>
    <style>` + baseStyles + `</style>
  </head>
  <body data-session="` + esc(data.SessionID) + `" data-name="` + esc(data.Name) + `">
    <main class="shell">
      <header class="hero">
        <a class="tag" href="/">Planning Poker</a>
        <h1>Session ` + esc(data.SessionID) + `</h1>
        <p>Join code <code>` + esc(data.JoinCode) + `</code></p>
      </header>

      <section class="panel" id="identity">
        <form id="joinForm" class="row">
          <input name="name" placeholder="Your pseudonym" maxlength="32" value="` + esc(data.Name) + `" required/>
          <button type="submit" class="primary">Join</button>
        </form>
        <p id="status" class="muted"></p>
        <div class="row">
          <button id="finish" class="secondary">I'm done voting</button>
        </div>
        <p id="message" class="error"></p>
      </section>

      <section class="panel">
        <table>
          <thead><tr><th>Phase</th><th>Vote</th><th>Voters</th><th>Average</th><th>Validated</th></tr></thead>
          <tbody>
`)
		for _, phase := range data.Phases {
			b.WriteString(`            <tr data-phase="` + esc(phase.ID) + `">
              <td>` + esc(phase.Label) + `</td>
              <td class="row">`)
			for _, entry := range data.Scale {
				value := formatValue(entry.Value)
				b.WriteString(`<button class="vote" data-value="` + value + `" title="` + esc(entry.Label) + `">` + value + `</button>`)
			}
			b.WriteString(`</td>
              <td class="voters"></td>
              <td class="average"></td>
              <td class="estimate"></td>
            </tr>
`)
		}
		b.WriteString(`          </tbody>
        </table>
        <p>My total: <strong id="myTotal">0.00</strong></p>
        <p id="groupTotal"></p>
        <p id="adminTotal"></p>
        <ul id="personalTotals"></ul>
      </section>

      <section class="panel">
        <h2>Participants</h2>
        <ul id="participants"></ul>
      </section>

      <section class="panel">
        <h2>Admin</h2>
        <form id="adminForm" class="row">
          <input type="password" name="password" placeholder="Admin password" required/>
          <button type="submit" class="secondary">Unlock</button>
        </form>
        <div id="adminControls" class="row" hidden>
          <button id="reveal" class="primary">Reveal estimations</button>
          <button id="resetVotes" class="secondary">Reset votes</button>
          <button id="resetAll" class="secondary">Reset everything</button>
        </div>
      </section>

      <section class="panel">
        <h2>Scale</h2>
        <ul class="legend">
`)
		for _, entry := range data.Scale {
			b.WriteString(`          <li><strong>` + formatValue(entry.Value) + `</strong> ` + esc(entry.Label) + `</li>
`)
		}
		b.WriteString(`        </ul>
      </section>
    </main>

    <script>` + sessionScript + `</script>
  </body>
</html>
`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

const sessionScript = `
const sessionID = document.body.dataset.session;
const base = "/api/sessions/" + encodeURIComponent(sessionID);
const tokenKey = "pp_admin_" + sessionID;
const message = document.getElementById("message");
let current = null;

function adminToken() {
  return sessionStorage.getItem(tokenKey) || "";
}

async function post(path, body) {
  message.textContent = "";
  const headers = { "Content-Type": "application/json" };
  if (adminToken()) {
    headers["X-Admin-Token"] = adminToken();
  }
  const res = await fetch(base + path, { method: "POST", headers, body: JSON.stringify(body || {}) });
  const data = await res.json();
  if (!res.ok) {
    message.textContent = data.error || "Request failed.";
    if (res.status === 403 && adminToken()) {
      sessionStorage.removeItem(tokenKey);
    }
    return null;
  }
  if (data.session) {
    render(data.session);
  }
  return data;
}

function render(snapshot) {
  current = snapshot;
  const viewer = snapshot.viewer;
  document.getElementById("status").textContent = viewer.validated
    ? "Voting as " + viewer.name + (viewer.finished ? " (done)" : "") + (viewer.modified ? " (modified)" : "")
    : "Pick a pseudonym to vote.";
  document.getElementById("finish").disabled = !viewer.can_vote;
  document.getElementById("adminControls").hidden = !viewer.admin;
  document.getElementById("adminForm").hidden = viewer.admin;
  document.getElementById("myTotal").textContent = snapshot.my_total;
  document.getElementById("groupTotal").textContent = snapshot.group_total ? "Group total: " + snapshot.group_total : "";
  document.getElementById("adminTotal").textContent = snapshot.admin_validated_total ? "Validated total: " + snapshot.admin_validated_total : "";

  const totals = document.getElementById("personalTotals");
  totals.replaceChildren();
  Object.entries(snapshot.personal_totals || {}).forEach(([name, total]) => {
    const li = document.createElement("li");
    li.textContent = name + ": " + total;
    totals.appendChild(li);
  });

  const participants = document.getElementById("participants");
  participants.replaceChildren();
  snapshot.participants.forEach((name) => {
    const li = document.createElement("li");
    let label = name;
    if (snapshot.finished_voting[name]) label += " - done";
    if (snapshot.modified_voting[name]) label += " - modified";
    li.textContent = label;
    participants.appendChild(li);
  });

  snapshot.phases.forEach((phase) => {
    const row = document.querySelector('tr[data-phase="' + CSS.escape(phase.id) + '"]');
    if (!row) return;
    row.querySelectorAll(".vote").forEach((button) => {
      button.disabled = !viewer.can_vote;
      button.classList.toggle("selected", phase.my_vote !== null && Number(button.dataset.value) === phase.my_vote);
    });
    const voters = phase.voters.map((name) => phase.votes ? name + " (" + phase.votes[name] + ")" : name);
    row.querySelector(".voters").textContent = voters.join(", ");
    row.querySelector(".average").textContent = phase.average_text || "";
    const estimate = row.querySelector(".estimate");
    estimate.replaceChildren();
    if (viewer.admin) {
      snapshot.scale.forEach((entry) => {
        const button = document.createElement("button");
        button.className = "vote";
        button.textContent = entry.value;
        button.classList.toggle("selected", phase.admin_estimate === entry.value);
        button.addEventListener("click", () => post("/admin-estimates", { phase: phase.id, value: entry.value }));
        estimate.appendChild(button);
      });
      const reset = document.createElement("button");
      reset.className = "secondary";
      reset.textContent = "Reset phase";
      reset.addEventListener("click", () => post("/reset/phase", { phase: phase.id }));
      estimate.appendChild(reset);
    } else if (phase.admin_estimate !== undefined && phase.admin_estimate !== null) {
      estimate.textContent = phase.admin_estimate;
    }
  });
}

document.querySelectorAll("tr[data-phase]").forEach((row) => {
  row.querySelectorAll(".vote").forEach((button) => {
    button.addEventListener("click", () => post("/votes", { phase: row.dataset.phase, value: Number(button.dataset.value) }));
  });
});

document.getElementById("joinForm").addEventListener("submit", (event) => {
  event.preventDefault();
  post("/join", { name: event.target.elements.name.value.trim() });
});
document.getElementById("finish").addEventListener("click", () => post("/finish"));
document.getElementById("reveal").addEventListener("click", () => post("/reveal"));
document.getElementById("resetVotes").addEventListener("click", () => {
  if (confirm("Clear every vote and keep participants?")) post("/reset/votes");
});
document.getElementById("resetAll").addEventListener("click", () => {
  if (confirm("Clear votes and participants?")) post("/reset/all");
});
document.getElementById("adminForm").addEventListener("submit", async (event) => {
  event.preventDefault();
  const data = await post("/admin", { password: event.target.elements.password.value });
  event.target.reset();
  if (data && data.admin_token) {
    sessionStorage.setItem(tokenKey, data.admin_token);
    connect();
  }
});

let socket = null;
function connect() {
  if (socket) {
    socket.onclose = null;
    socket.close();
  }
  const scheme = location.protocol === "https:" ? "wss://" : "ws://";
  let url = scheme + location.host + "/ws/sessions/" + encodeURIComponent(sessionID);
  if (adminToken()) {
    url += "?admin_token=" + encodeURIComponent(adminToken());
  }
  socket = new WebSocket(url);
  socket.onmessage = (event) => render(JSON.parse(event.data));
  socket.onclose = () => setTimeout(connect, 2000);
}
connect();
`
