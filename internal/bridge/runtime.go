package bridge

import "strings"

// RuntimeMarker identifies an injected runtime so Prepare never injects twice.
const RuntimeMarker = "data-reveal-runtime"

const runtimeTag = "<script " + RuntimeMarker + ">"

// RuntimeScript runs inside the embedded slide document. It toggles the
// "is-on" class on reveal targets in response to RESET and REVEAL messages
// and tells the host when the document has loaded.
const RuntimeScript = runtimeTag + `
(function () {
  function reset() {
    document.querySelectorAll(".reveal").forEach(function (el) {
      el.classList.remove("is-on");
    });
  }

  function reveal(id) {
    var el = document.querySelector('[data-reveal="' + CSS.escape(String(id)) + '"]');
    if (el) el.classList.add("is-on");
  }

  window.addEventListener("message", function (e) {
    var msg = e.data;
    if (!msg) return;
    if (msg.type === "RESET") reset();
    if (msg.type === "REVEAL") reveal(msg.id);
  });

  window.addEventListener("load", function () {
    if (window.parent && window.parent !== window) {
      var placement = new URLSearchParams(location.search).get("placement");
      window.parent.postMessage({ type: "LOADED", placement: placement }, "*");
    }
  });
})();
</script>
`

const closingBody = "</body>"

// Prepare injects the reveal runtime into a slide document: before the
// last closing body tag when there is one, otherwise at the end. Documents
// that already carry the runtime tag are returned unchanged.
func Prepare(html string) string {
	if strings.Contains(html, runtimeTag) {
		return html
	}

	idx := lastIndexFold(html, closingBody)
	if idx < 0 {
		return html + RuntimeScript
	}

	var b strings.Builder
	b.Grow(len(html) + len(RuntimeScript))
	b.WriteString(html[:idx])
	b.WriteString(RuntimeScript)
	b.WriteString(html[idx:])
	return b.String()
}

// lastIndexFold is strings.LastIndex with ASCII case folding. Byte offsets
// stay valid for the original string.
func lastIndexFold(s, substr string) int {
	for i := len(s) - len(substr); i >= 0; i-- {
		if strings.EqualFold(s[i:i+len(substr)], substr) {
			return i
		}
	}
	return -1
}
