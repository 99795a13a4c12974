package envinfo

// JS expressions evaluated in the inspected page. Each returns a JSON object
// whose keys line up with the accessor's struct tags. Expressions must never
// throw on a normal page; optional APIs are probed defensively in-page.

const jsPageInfo = `(() => ({
	url: location.href,
	title: document.title || "",
	host: location.host || "",
	protocol: location.protocol || "",
	referrer: document.referrer || ""
}))()`

const jsBrowserInfo = `(() => ({
	user_agent: navigator.userAgent || "",
	language: navigator.language || "",
	platform: navigator.platform || "",
	vendor: navigator.vendor || "",
	cookie_enabled: !!navigator.cookieEnabled,
	online: !!navigator.onLine
}))()`

const jsDeviceInfo = `(() => ({
	viewport_width: window.innerWidth || 0,
	viewport_height: window.innerHeight || 0,
	screen_width: screen.width || 0,
	screen_height: screen.height || 0,
	avail_width: screen.availWidth || 0,
	avail_height: screen.availHeight || 0,
	color_depth: screen.colorDepth || 0,
	device_pixel_ratio: window.devicePixelRatio || 1
}))()`

const jsTimingRaw = `(() => {
	const nav = performance.getEntriesByType && performance.getEntriesByType("navigation")[0];
	const origin = performance.timeOrigin || 0;
	const abs = (v) => (v > 0 ? Math.round(origin + v) : 0);
	if (nav) {
		return {
			navigation_start: Math.round(origin),
			request_start: abs(nav.requestStart),
			response_end: abs(nav.responseEnd),
			dom_content_loaded_event_end: abs(nav.domContentLoadedEventEnd),
			load_event_end: abs(nav.loadEventEnd),
			dom_interactive: abs(nav.domInteractive),
			domain_lookup_start: abs(nav.domainLookupStart),
			domain_lookup_end: abs(nav.domainLookupEnd),
			connect_start: abs(nav.connectStart),
			connect_end: abs(nav.connectEnd),
			secure_connection_start: abs(nav.secureConnectionStart),
			redirect_count: nav.redirectCount || 0,
			transfer_size: nav.transferSize || 0,
			encoded_body_size: nav.encodedBodySize || 0,
			decoded_body_size: nav.decodedBodySize || 0
		};
	}
	const t = performance.timing || {};
	return {
		navigation_start: t.navigationStart || 0,
		request_start: t.requestStart || 0,
		response_end: t.responseEnd || 0,
		dom_content_loaded_event_end: t.domContentLoadedEventEnd || 0,
		load_event_end: t.loadEventEnd || 0,
		dom_interactive: t.domInteractive || 0,
		domain_lookup_start: t.domainLookupStart || 0,
		domain_lookup_end: t.domainLookupEnd || 0,
		connect_start: t.connectStart || 0,
		connect_end: t.connectEnd || 0,
		secure_connection_start: t.secureConnectionStart || 0
	};
})()`

const jsMetaTags = `(() => {
	const out = {};
	for (const m of document.querySelectorAll("meta[name], meta[property]")) {
		const key = m.getAttribute("name") || m.getAttribute("property");
		const content = m.getAttribute("content");
		if (key && content != null) out[key] = content;
	}
	return out;
})()`

const jsConnectionInfo = `(() => {
	const c = navigator.connection || navigator.mozConnection || navigator.webkitConnection;
	if (!c) return {};
	return {
		effective_type: c.effectiveType || "",
		downlink_mbps: c.downlink || 0,
		rtt_ms: c.rtt || 0,
		save_data: !!c.saveData
	};
})()`

const jsDocumentInfo = `(() => ({
	character_set: document.characterSet || "",
	content_type: document.contentType || "",
	last_modified: document.lastModified || "",
	ready_state: document.readyState || ""
}))()`

const jsTimezoneInfo = `(() => ({
	timezone: (Intl.DateTimeFormat().resolvedOptions().timeZone) || "",
	offset_minutes: -new Date().getTimezoneOffset()
}))()`
