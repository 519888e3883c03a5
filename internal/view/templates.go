package view

// pageHTML is the single-page template for both grids. The markup and
// palette follow the original tool: green headers, bordered centered
// cells, red/green accents on the meter readings, double-click to edit.
const pageHTML = `{{define "grid"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}} — RMS</title>
<style>
body{font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",Helvetica,Arial,sans-serif;background:#0a0a0a;color:#ededed;margin:0;padding-bottom:48px}
a{text-decoration:none;color:inherit}
.tabs{display:flex;justify-content:center;gap:16px;margin:16px}
.tab{padding:16px;border:2px solid #86efac;border-radius:6px;display:flex;align-items:center;gap:8px}
.tab.active{background:#86efac;color:#fff}
.page-title{text-align:center;font-size:24px;font-weight:700;color:#86efac;margin-bottom:16px}
.wrap{overflow-x:auto;padding:0 8px;display:flex;flex-wrap:wrap;justify-content:center}
table{border-collapse:collapse;width:100%;user-select:none}
th{background:#86efac;color:#0a0a0a;border:1px solid #1f2937;text-align:center;padding:8px}
td{border:1px solid #1f2937;text-align:center;padding:8px}
td.editable{cursor:pointer}
td[contenteditable="true"]{outline:2px solid #86efac;font-weight:700}
.col-previous_reading{color:#ef4444}
.col-current_reading{color:#22c55e}
.col-paid_amount{color:#22c55e}
.totals{margin-top:16px;font-size:18px;font-weight:700;text-align:center;color:#86efac}
.totals span{color:#fff}
.empty{color:#6b7280;padding:16px;text-align:center}
.error{color:#ef4444;padding:16px}
</style>
</head>
<body>
<div class="tabs">
  <a class="tab{{if eq .Active "lightbill"}} active{{end}}" href="/lightbill"><span>💡</span><span>Light</span></a>
  <a class="tab{{if eq .Active "payment"}} active{{end}}" href="/payment"><span>💰</span><span>Money</span></a>
</div>
{{if .Err}}
<p class="error">Error: {{.Err}}</p>
{{else}}
<main>
<div class="page-title">{{.Title}}</div>
<div class="wrap">
<table id="grid" data-grid="{{.Active}}" data-columns="{{range $i, $c := .Schema.Columns}}{{if $i}},{{end}}{{$c}}{{end}}"
  data-editable="{{$s := .Schema}}{{range $c := .Schema.Columns}}{{if $s.Editable $c}}{{$c}},{{end}}{{end}}">
  <thead>
    <tr>{{$h := .Schema.Headers}}{{range .Schema.Columns}}<th>{{index $h .}}</th>{{end}}</tr>
  </thead>
  <tbody>
  {{$s := .Schema}}
  {{if .Rows}}
    {{range $row := .Rows}}
    <tr data-id="{{rowID $row}}">
      {{range $col := $s.Columns}}
      <td class="col-{{$col}}{{if $s.Editable $col}} editable{{end}}" data-col="{{$col}}">{{cell $row $col}}</td>
      {{end}}
    </tr>
    {{end}}
  {{else}}
    <tr><td class="empty" colspan="{{len .Schema.Columns}}">No data available</td></tr>
  {{end}}
  </tbody>
</table>
{{if .Schema.HasTotals}}
<div class="totals" id="totals">
  <p>Total Bill: <span id="total-bill">₹{{.TotalBill}}</span></p>
  <p>Total Points: <span id="total-points">{{.TotalPoints}}</span></p>
</div>
{{end}}
</div>
</main>
<script>
(function () {
  var table = document.getElementById("grid");
  if (!table) return;
  var gridName = table.dataset.grid;
  var columns = table.dataset.columns.split(",");
  var editable = {};
  table.dataset.editable.split(",").forEach(function (c) { if (c) editable[c] = true; });

  function api(path, opts) {
    return fetch("/v1/grids/" + gridName + path, Object.assign({
      headers: { "Content-Type": "application/json" }
    }, opts));
  }

  function placeCaretAtEnd(el) {
    var range = document.createRange();
    var sel = window.getSelection();
    range.selectNodeContents(el);
    range.collapse(false);
    sel.removeAllRanges();
    sel.addRange(range);
  }

  function renderRow(tr, row) {
    tr.querySelectorAll("td").forEach(function (td) {
      var v = row[td.dataset.col];
      td.innerText = v === null || v === undefined ? "" : String(v);
    });
  }

  function renderTotals(totals) {
    if (!totals) return;
    var bill = document.getElementById("total-bill");
    var points = document.getElementById("total-points");
    if (bill) bill.innerText = "₹" + totals.bill;
    if (points) points.innerText = totals.points;
  }

  function rebuild(rows) {
    var tbody = table.querySelector("tbody");
    tbody.innerHTML = "";
    if (!rows.length) {
      var tr = document.createElement("tr");
      var td = document.createElement("td");
      td.className = "empty";
      td.colSpan = columns.length;
      td.innerText = "No data available";
      tr.appendChild(td);
      tbody.appendChild(tr);
      return;
    }
    rows.forEach(function (row) {
      var tr = document.createElement("tr");
      tr.dataset.id = row.id;
      columns.forEach(function (col) {
        var td = document.createElement("td");
        td.className = "col-" + col + (editable[col] ? " editable" : "");
        td.dataset.col = col;
        var v = row[col];
        td.innerText = v === null || v === undefined ? "" : String(v);
        tr.appendChild(td);
      });
      tbody.appendChild(tr);
    });
  }

  function refresh() {
    api("/rows", { method: "GET" }).then(function (res) {
      if (!res.ok) return;
      return res.json();
    }).then(function (body) {
      if (!body) return;
      rebuild(body.rows || []);
      renderTotals(body.totals);
    });
  }

  table.addEventListener("dblclick", function (e) {
    var td = e.target.closest("td");
    if (!td || !editable[td.dataset.col]) return;
    var tr = td.closest("tr");
    if (!tr || !tr.dataset.id) return;
    api("/edits", {
      method: "POST",
      body: JSON.stringify({ row_id: Number(tr.dataset.id), column: td.dataset.col })
    }).then(function (res) {
      if (!res.ok) return; // busy or not editable: leave the cell alone
      td.dataset.orig = td.innerText;
      td.contentEditable = "true";
      td.focus();
      placeCaretAtEnd(td);
    });
  });

  table.addEventListener("keydown", function (e) {
    if (e.key === "Enter" && e.target.isContentEditable) {
      e.preventDefault();
      e.target.blur();
    }
  });

  table.addEventListener("blur", function (e) {
    var td = e.target;
    if (!(td instanceof HTMLElement) || !td.isContentEditable) return;
    td.contentEditable = "false";
    var tr = td.closest("tr");
    var text = td.innerText;
    var orig = td.dataset.orig || "";
    if (text.trim() === orig.trim()) {
      api("/edits", { method: "DELETE" });
      return;
    }
    api("/rows/" + tr.dataset.id + "/cells/" + td.dataset.col, {
      method: "PUT",
      body: JSON.stringify({ value: text })
    }).then(function (res) {
      if (!res.ok) {
        return res.json().then(function (body) {
          throw new Error((body && body.error) || ("HTTP " + res.status));
        });
      }
      return res.json();
    }).then(function (body) {
      renderRow(tr, body.row);
      renderTotals(body.totals);
    }).catch(function (err) {
      alert("Error updating: " + err.message);
      td.innerText = orig;
    });
  }, true);

  // Realtime reconciliations applied by the server are pushed over SSE;
  // a full re-fetch keeps the DOM convergent and is cheap at this scale.
  var es = new EventSource("/v1/grids/" + gridName + "/stream");
  es.addEventListener("change", function () { refresh(); });
})();
</script>
{{end}}
</body>
</html>{{end}}`
