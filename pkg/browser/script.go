package browser

// Scripts executed through Transport.RunScript. Every script is an arrow
// function taking a single array argument so the same source works across
// transports that differ in how they pass arguments.

// extractionScript walks the page for interactive elements in one round-trip.
// args: [maxElements, maxTextLength, minVisibleArea, opacityCutoff]
//
// Same-origin frames are re-entered with the frame rect as an offset;
// cross-origin frames are skipped silently. Detached and zero-size elements
// are kept with isVisible=false so callers can still reason about them.
const extractionScript = `(args) => {
	const max = Math.max(1, Math.min(Number(args[0] ?? 400), 2000));
	const maxText = Math.max(1, Number(args[1] ?? 300));
	const minArea = Number(args[2] ?? 1);
	const opacityCutoff = Number(args[3] ?? 0);

	const selectors = [
		'a[href]',
		'button',
		'input',
		'select',
		'textarea',
		'[role="button"]',
		'[role="link"]',
		'[role="checkbox"]',
		'[role="menuitem"]',
		'[role="tab"]',
		'[contenteditable=""]',
		'[contenteditable="true"]',
		'[tabindex]:not([tabindex="-1"])',
		'[onclick]'
	].join(',');

	const attrs = ['id', 'class', 'aria-label', 'href', 'type', 'placeholder', 'name', 'value', 'role', 'title'];

	const getXPath = (el) => {
		if (!el || el.nodeType !== Node.ELEMENT_NODE) return null;
		if (el.id) return '//*[@id="' + el.id + '"]';
		const parts = [];
		let node = el;
		const root = el.ownerDocument.body || el.ownerDocument.documentElement;
		while (node && node.nodeType === Node.ELEMENT_NODE && node !== root) {
			let index = 1;
			let sibling = node.previousElementSibling;
			while (sibling) {
				if (sibling.tagName === node.tagName) index += 1;
				sibling = sibling.previousElementSibling;
			}
			parts.unshift(node.tagName.toLowerCase() + '[' + index + ']');
			node = node.parentElement;
		}
		return '/' + parts.join('/');
	};

	const getCssSelector = (el) => {
		if (!el || el.nodeType !== Node.ELEMENT_NODE) return null;
		if (el.id) return '#' + CSS.escape(el.id);
		const classPart = (el.className && typeof el.className === 'string')
			? '.' + el.className.trim().split(/\s+/).slice(0, 2).map((c) => CSS.escape(c)).join('.')
			: '';
		return el.tagName.toLowerCase() + classPart;
	};

	const isVisible = (el, rect, win) => {
		if (!el || !rect) return false;
		if (rect.width <= 0 || rect.height <= 0) return false;
		if (rect.width * rect.height < minArea) return false;
		if (rect.bottom < 0 || rect.right < 0) return false;
		if (rect.top > win.innerHeight || rect.left > win.innerWidth) return false;

		const style = win.getComputedStyle(el);
		if (!style) return true;
		if (style.display === 'none') return false;
		if (style.visibility === 'hidden') return false;
		if (Number(style.opacity) <= opacityCutoff) return false;
		if (el.hasAttribute('hidden')) return false;
		if (el.getAttribute('aria-hidden') === 'true') return false;
		return true;
	};

	const out = [];

	const collect = (doc, win, offsetX, offsetY) => {
		if (out.length >= max) return;
		const seen = new Set();
		for (const el of Array.from(doc.querySelectorAll(selectors))) {
			if (out.length >= max) return;
			if (!el || seen.has(el)) continue;
			seen.add(el);

			const rect = el.getBoundingClientRect();
			const attributes = {};
			for (const key of attrs) {
				const value = el.getAttribute(key);
				if (value != null && value !== '') attributes[key] = String(value);
			}

			const textContent = (el.innerText || el.textContent || '').trim().replace(/\s+/g, ' ').slice(0, maxText);

			out.push({
				tag_name: el.tagName.toLowerCase(),
				text_content: textContent,
				attributes,
				bounding_rect: {
					x: rect.x + offsetX,
					y: rect.y + offsetY,
					width: rect.width,
					height: rect.height
				},
				is_visible: isVisible(el, rect, win),
				is_scrollable: (el.scrollHeight > el.clientHeight) || (el.scrollWidth > el.clientWidth),
				xpath: getXPath(el),
				css_selector: getCssSelector(el)
			});
		}

		for (const frame of Array.from(doc.querySelectorAll('iframe, frame'))) {
			if (out.length >= max) return;
			let childDoc = null;
			let childWin = null;
			try {
				childDoc = frame.contentDocument;
				childWin = frame.contentWindow;
			} catch (_) {
				continue; // cross-origin, skip
			}
			if (!childDoc || !childWin) continue;
			const frameRect = frame.getBoundingClientRect();
			collect(childDoc, childWin, offsetX + frameRect.x, offsetY + frameRect.y);
		}
	};

	collect(document, window, 0, 0);
	out.forEach((el, i) => { el.index = i + 1; });

	return {
		url: window.location.href,
		title: document.title || '',
		viewport_width: window.innerWidth,
		viewport_height: window.innerHeight,
		elements: out
	};
}`

// scrollWindowScript scrolls the window by a pixel delta. A zero delta means
// one viewport along the direction. args: [dx, dy, direction]
const scrollWindowScript = `(args) => {
	let dx = Number(args[0]) || 0;
	let dy = Number(args[1]) || 0;
	if (dx === 0 && dy === 0) {
		const direction = String(args[2] || 'down');
		if (direction === 'up') dy = -window.innerHeight;
		else if (direction === 'left') dx = -window.innerWidth;
		else if (direction === 'right') dx = window.innerWidth;
		else dy = window.innerHeight;
	}
	window.scrollBy(dx, dy);
	return true;
}`

// scrollElementScript scrolls inside the element addressed by a selector. A
// zero delta means one client height/width along the direction.
// args: [cssSelector, xpath, dx, dy, direction]
const scrollElementScript = `(args) => {
	let element = null;
	if (args[0]) {
		try { element = document.querySelector(args[0]); } catch (_) {}
	}
	if (!element && args[1]) {
		try {
			element = document.evaluate(args[1], document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		} catch (_) {}
	}
	if (!element) return false;
	let dx = Number(args[2]) || 0;
	let dy = Number(args[3]) || 0;
	if (dx === 0 && dy === 0) {
		const direction = String(args[4] || 'down');
		if (direction === 'up') dy = -element.clientHeight;
		else if (direction === 'left') dx = -element.clientWidth;
		else if (direction === 'right') dx = element.clientWidth;
		else dy = element.clientHeight;
	}
	element.scrollBy(dx, dy);
	return true;
}`

// scrollToTextScript walks text nodes and scrolls the first match into view.
// args: [text]
const scrollToTextScript = `(args) => {
	const targetText = String(args[0] || '').toLowerCase();
	const walker = document.createTreeWalker(document.body || document.documentElement, NodeFilter.SHOW_TEXT);
	let node = null;
	while ((node = walker.nextNode())) {
		const value = (node.nodeValue || '').toLowerCase();
		if (value.includes(targetText) && node.parentElement) {
			node.parentElement.scrollIntoView({ block: 'center', inline: 'nearest', behavior: 'instant' });
			return true;
		}
	}
	return false;
}`

// scrollIntoViewScript brings a located element into view and reports its
// fresh rect. args: [cssSelector, xpath]
const scrollIntoViewScript = `(args) => {
	let element = null;
	if (args[0]) {
		try { element = document.querySelector(args[0]); } catch (_) {}
	}
	if (!element && args[1]) {
		try {
			element = document.evaluate(args[1], document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		} catch (_) {}
	}
	if (!element) return { ok: false };
	element.scrollIntoView({ block: 'center', inline: 'nearest', behavior: 'instant' });
	const rect = element.getBoundingClientRect();
	return { ok: true, rect: { x: rect.x, y: rect.y, width: rect.width, height: rect.height } };
}`

// clearActiveElementScript empties the focused element before typing.
const clearActiveElementScript = `() => {
	const active = document.activeElement;
	if (!active) return false;
	if ('value' in active) active.value = '';
	if (active.isContentEditable) active.textContent = '';
	active.dispatchEvent(new Event('input', { bubbles: true }));
	active.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`

// readActiveValueScript reads back the focused element's value after typing.
const readActiveValueScript = `() => {
	const active = document.activeElement;
	if (!active) return null;
	if ('value' in active) return active.value;
	if (active.isContentEditable) return active.textContent || '';
	return null;
}`

// readyStateScript reports document.readyState.
const readyStateScript = `() => document.readyState`

// healthScript is the cheapest possible liveness round-trip.
const healthScript = `() => 1`

// pageInfoScript captures page and scroll geometry.
const pageInfoScript = `() => {
	const doc = document.documentElement;
	const pageWidth = Math.max(doc.scrollWidth, doc.clientWidth);
	const pageHeight = Math.max(doc.scrollHeight, doc.clientHeight);
	const scrollX = Math.round(window.scrollX || 0);
	const scrollY = Math.round(window.scrollY || 0);
	return {
		viewport_width: window.innerWidth,
		viewport_height: window.innerHeight,
		page_width: pageWidth,
		page_height: pageHeight,
		scroll_x: scrollX,
		scroll_y: scrollY,
		pixels_above: scrollY,
		pixels_below: Math.max(0, pageHeight - scrollY - window.innerHeight)
	};
}`

// pageHTMLScript returns the serialized document for text extraction.
const pageHTMLScript = `() => document.documentElement ? document.documentElement.outerHTML : ''`

// dropdownOptionsScript reads options from a native select or a role-based
// custom dropdown. args: [cssSelector, xpath]
const dropdownOptionsScript = `(args) => {
	let element = null;
	if (args[0]) {
		try { element = document.querySelector(args[0]); } catch (_) {}
	}
	if (!element && args[1]) {
		try {
			element = document.evaluate(args[1], document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		} catch (_) {}
	}
	if (!element) return { error: 'Dropdown element not found' };

	let options = [];
	let dropdownType = 'unknown';

	if (element.tagName && element.tagName.toLowerCase() === 'select') {
		dropdownType = 'select';
		options = Array.from(element.options).map((option, index) => ({
			index,
			text: option.textContent ? option.textContent.trim() : '',
			value: option.value || '',
			selected: option.selected
		}));
	} else {
		dropdownType = element.getAttribute('role') || 'custom';
		const candidates = element.querySelectorAll('[role="option"], [role="menuitem"], option, li');
		options = Array.from(candidates).map((option, index) => ({
			index,
			text: option.textContent ? option.textContent.trim() : '',
			value: option.getAttribute('value') || option.getAttribute('data-value') || '',
			selected: option.getAttribute('aria-selected') === 'true' || option.selected === true
		})).filter((option) => option.text || option.value);
	}

	return { type: dropdownType, options };
}`

// dropdownSelectScript selects an option by exact text or value match.
// args: [cssSelector, xpath, target]
const dropdownSelectScript = `(args) => {
	let element = null;
	if (args[0]) {
		try { element = document.querySelector(args[0]); } catch (_) {}
	}
	if (!element && args[1]) {
		try {
			element = document.evaluate(args[1], document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		} catch (_) {}
	}
	const targetValue = String(args[2] || '').toLowerCase();
	if (!element) return { success: false, error: 'Dropdown element not found' };

	if (element.tagName && element.tagName.toLowerCase() === 'select') {
		for (const option of Array.from(element.options)) {
			const optionText = (option.textContent || '').trim().toLowerCase();
			const optionValue = String(option.value || '').toLowerCase();
			if (optionText === targetValue || optionValue === targetValue) {
				element.value = option.value;
				option.selected = true;
				element.dispatchEvent(new Event('input', { bubbles: true }));
				element.dispatchEvent(new Event('change', { bubbles: true }));
				return { success: true, message: 'Selected option: ' + (option.textContent || option.value) };
			}
		}
		return { success: false, error: 'Option not found: ' + args[2] };
	}

	const candidates = element.querySelectorAll('[role="option"], [role="menuitem"], li, option');
	for (const candidate of Array.from(candidates)) {
		const text = (candidate.textContent || '').trim();
		const value = candidate.getAttribute('value') || candidate.getAttribute('data-value') || '';
		if (text.toLowerCase() === targetValue || String(value).toLowerCase() === targetValue) {
			candidate.click();
			return { success: true, message: 'Selected option: ' + (text || value) };
		}
	}

	return { success: false, error: 'Option not found: ' + args[2] };
}`
