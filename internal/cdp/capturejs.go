package cdp

// captureScript is injected into every document of the attached tab. It
// installs one capture-phase click listener and emits a serialized payload
// through the CDP binding. Capture phase is mandatory: a page handler
// calling stopPropagation or preventDefault must not hide the click.
//
// Serialization happens in the page because only the page can read computed
// styles and live geometry; all filtering and enrichment stays on the Go
// side so the inspector remains a pure function.
const captureScript = `(() => {
	if (window.__pagepulseInstalled) return;
	window.__pagepulseInstalled = true;

	const MAX_TEXT = 200;

	function serializeNode(el) {
		const parent = el.parentElement;
		let nth = 0, siblingTags = 0;
		if (parent) {
			const children = parent.children;
			for (let i = 0; i < children.length; i++) {
				if (children[i] === el) nth = i + 1;
				if (children[i].tagName === el.tagName) siblingTags++;
			}
		}

		const dataAttrs = {};
		for (const attr of el.attributes || []) {
			if (attr.name.startsWith("data-")) {
				dataAttrs[attr.name.slice(5)] = attr.value;
			}
		}

		let style = { display: "", visibility: "", opacity: "" };
		try {
			const cs = window.getComputedStyle(el);
			style = { display: cs.display, visibility: cs.visibility, opacity: cs.opacity };
		} catch (e) { /* detached node */ }

		const rect = el.getBoundingClientRect();
		return {
			tag: el.tagName || "",
			id: el.id || "",
			class_name: typeof el.className === "string" ? el.className : "",
			class_list: Array.from(el.classList || []),
			role: el.getAttribute ? (el.getAttribute("role") || "") : "",
			type: el.type || "",
			name: el.name || "",
			value: typeof el.value === "string" ? el.value.slice(0, MAX_TEXT) : "",
			aria_label: el.getAttribute ? (el.getAttribute("aria-label") || "") : "",
			title: el.title || "",
			text: (el.textContent || "").slice(0, MAX_TEXT),
			disabled: !!el.disabled,
			child_count: el.children ? el.children.length : 0,
			data_attributes: dataAttrs,
			rect: { x: rect.x, y: rect.y, width: rect.width, height: rect.height },
			display: style.display,
			visibility: style.visibility,
			opacity: style.opacity,
			has_offset_parent: el.offsetParent !== null || el.tagName === "BODY",
			nth_child: nth,
			sibling_tag_count: siblingTags
		};
	}

	function serializeForm(el) {
		const form = el.closest ? el.closest("form") : null;
		if (!form) return null;
		return {
			id: form.id || "",
			name: form.getAttribute("name") || "",
			method: form.method || "",
			action: form.getAttribute("action") || "",
			enctype: form.enctype || "",
			element_count: form.elements ? form.elements.length : 0
		};
	}

	document.addEventListener("click", (ev) => {
		try {
			let el = ev.target;
			if (!el || el.nodeType !== 1) return;

			const chain = [];
			for (let node = el; node && node.tagName !== "HTML"; node = node.parentElement) {
				chain.push(serializeNode(node));
				if (node.tagName === "BODY") break;
			}

			const payload = {
				timestamp: Date.now(),
				chain: chain,
				parent_tag: el.parentElement ? el.parentElement.tagName.toLowerCase() : "",
				form: serializeForm(el),
				page: {
					url: location.href,
					title: document.title || "",
					host: location.host || "",
					protocol: location.protocol || "",
					referrer: document.referrer || ""
				},
				client_x: ev.clientX, client_y: ev.clientY,
				page_x: ev.pageX, page_y: ev.pageY,
				screen_x: ev.screenX, screen_y: ev.screenY,
				offset_x: ev.offsetX, offset_y: ev.offsetY,
				button: ev.button,
				alt_key: ev.altKey, ctrl_key: ev.ctrlKey,
				shift_key: ev.shiftKey, meta_key: ev.metaKey
			};

			if (window.__pagepulseEmit) {
				window.__pagepulseEmit(JSON.stringify(payload));
			}
		} catch (e) { /* capture must never break the page */ }
	}, true);
})();`
