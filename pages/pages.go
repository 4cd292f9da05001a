package pages

// App is the single-page shell. All state lives server-side or in cookies;
// the page re-checks /auth/check on load rather than trusting any local
// mirror of the session.
var App = `<!DOCTYPE html>
<html>
<head>
    <title>Spindle</title>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>
        body {
            font-family: Arial, sans-serif;
            background: #14100c;
            color: #f0e6d8;
            max-width: 900px;
            margin: 0 auto;
            padding: 20px;
        }
        input, button {
            font-size: 16px;
            padding: 8px 12px;
            border-radius: 4px;
            border: 1px solid #5a4a38;
            background: #241c14;
            color: #f0e6d8;
        }
        button { cursor: pointer; }
        button:disabled { opacity: 0.5; cursor: wait; }
        .row { display: flex; gap: 8px; margin: 16px 0; }
        .albums { display: flex; flex-wrap: wrap; gap: 12px; }
        .album {
            width: 140px;
            cursor: pointer;
            text-align: center;
            font-size: 13px;
        }
        .album img { width: 140px; height: 140px; border-radius: 4px; }
        .platter {
            width: 260px;
            height: 260px;
            margin: 24px auto;
            border-radius: 50%;
            background: radial-gradient(circle, #3a2e20 18%, #191512 19%, #0c0a08 100%);
            box-shadow: 0 0 24px rgba(0,0,0,0.8);
        }
        .platter.spinning { animation: spin 1.8s linear infinite; }
        @keyframes spin { to { transform: rotate(360deg); } }
        .tracks li { margin: 4px 0; cursor: pointer; }
        .tracks li.playing { color: #e8b04a; }
        #status { min-height: 20px; color: #9c8a70; }
        #hint { min-height: 18px; color: #6e5f4b; font-size: 13px; }
    </style>
</head>
<body>
    <h1>Spindle</h1>
    <div id="auth"></div>
    <div class="row">
        <input id="artist" placeholder="Search for an artist" autofocus>
        <button id="search">Search</button>
    </div>
    <div id="status"></div>
    <div id="hint"></div>
    <div class="platter" id="platter"></div>
    <div class="albums" id="albums"></div>
    <ol class="tracks" id="tracks"></ol>

    <script>
    var audio = null;
    var crackle = null;
    var advanceTimer = null;
    var queue = [];
    var current = -1;

    function el(id) { return document.getElementById(id); }

    function setStatus(text) { el('status').textContent = text; }

    function getJSON(url) {
        return fetch(url).then(function (resp) {
            return resp.json().then(function (body) {
                if (!resp.ok) { throw new Error(body.error || ('HTTP ' + resp.status)); }
                return body;
            });
        });
    }

    function loadHint() {
        getJSON('/api/hints').then(function (body) {
            el('hint').textContent = body.hint || '';
        }).catch(function () {});
    }

    function renderAuth(state) {
        if (state.authenticated && !state.expired) {
            el('auth').innerHTML = '<button id="logout">Log out</button>';
            el('logout').onclick = function () {
                getJSON('/auth/logout').then(checkAuth);
            };
        } else {
            el('auth').innerHTML = '<a href="/auth/login">Log in with Spotify</a>';
        }
    }

    function checkAuth() {
        getJSON('/auth/check').then(function (state) {
            if (state.authenticated && state.expired && state.refresh_token) {
                // one refresh attempt, then the session is what it is
                fetch('/auth/refresh-token', { method: 'POST' }).then(function (resp) {
                    if (!resp.ok) { throw new Error('refresh rejected'); }
                    return getJSON('/auth/check');
                }).then(renderAuth).catch(function () {
                    renderAuth({ authenticated: false });
                });
                return;
            }
            renderAuth(state);
        });
    }

    function stopAudio() {
        if (advanceTimer) { clearTimeout(advanceTimer); advanceTimer = null; }
        if (audio) { audio.pause(); audio = null; }
        if (crackle) { crackle.stop(); crackle = null; }
    }

    function stopPlayback() {
        stopAudio();
        current = -1;
        el('platter').classList.remove('spinning');
        renderTracks();
    }

    function startCrackle(durationMs) {
        var ctx = new (window.AudioContext || window.webkitAudioContext)();
        var seconds = 2;
        var buffer = ctx.createBuffer(1, ctx.sampleRate * seconds, ctx.sampleRate);
        var data = buffer.getChannelData(0);
        for (var i = 0; i < data.length; i++) {
            data[i] = (Math.random() * 2 - 1) * (Math.random() < 0.002 ? 0.5 : 0.02);
        }
        var source = ctx.createBufferSource();
        source.buffer = buffer;
        source.loop = true;
        var filter = ctx.createBiquadFilter();
        filter.type = 'lowpass';
        filter.frequency.value = 1800;
        source.connect(filter);
        filter.connect(ctx.destination);
        source.start();
        crackle = { stop: function () { source.stop(); ctx.close(); } };
        advanceTimer = setTimeout(function () { trackEnded(); }, durationMs || 180000);
    }

    function trackEnded() {
        if (current + 1 < queue.length) {
            playTrack(current + 1);
        } else {
            stopPlayback();
            setStatus('');
        }
    }

    function playTrack(index) {
        stopAudio();
        current = index;
        var track = queue[index];
        el('platter').classList.add('spinning');
        renderTracks();

        if (track.preview_url) {
            setStatus('Playing preview: ' + track.name);
            audio = new Audio(track.preview_url);
            audio.onended = trackEnded;
            audio.onerror = function () {
                setStatus('Preview failed, spinning crackle: ' + track.name);
                audio = null;
                startCrackle(track.duration_ms);
            };
            audio.play().catch(function () { audio && audio.onerror(); });
        } else {
            setStatus('No preview, spinning crackle: ' + track.name);
            startCrackle(track.duration_ms);
        }
    }

    function renderTracks() {
        var list = el('tracks');
        list.innerHTML = '';
        queue.forEach(function (track, index) {
            var item = document.createElement('li');
            item.textContent = track.name;
            if (index === current) { item.className = 'playing'; }
            item.onclick = function () { playTrack(index); };
            list.appendChild(item);
        });
    }

    function loadAlbum(id) {
        setStatus('Loading album...');
        getJSON('/api/spotify/album/' + encodeURIComponent(id)).then(function (album) {
            stopPlayback();
            queue = (album.tracks && album.tracks.items) || [];
            setStatus(album.name);
            renderTracks();
        }).catch(function (err) { setStatus(err.message); });
    }

    function renderAlbums(albums) {
        var grid = el('albums');
        grid.innerHTML = '';
        albums.forEach(function (album) {
            var card = document.createElement('div');
            card.className = 'album';
            var cover = document.createElement('img');
            if (album.images && album.images.length) { cover.src = album.images[0].url; }
            var label = document.createElement('div');
            label.textContent = album.name;
            card.appendChild(cover);
            card.appendChild(label);
            card.onclick = function () { loadAlbum(album.id); };
            grid.appendChild(card);
        });
    }

    el('search').onclick = function () {
        var name = el('artist').value.trim();
        var button = el('search');
        button.disabled = true;
        button.textContent = 'Searching...';
        setStatus('');
        getJSON('/api/spotify/artist?name=' + encodeURIComponent(name))
            .then(function (artist) {
                return getJSON('/api/spotify/artist/' + encodeURIComponent(artist.id) + '/albums');
            })
            .then(function (albums) {
                renderAlbums(albums);
                loadHint();
            })
            .catch(function (err) { setStatus(err.message); })
            .then(function () {
                button.disabled = false;
                button.textContent = 'Search';
            });
    };

    var params = new URLSearchParams(window.location.search);
    if (params.get('error')) { setStatus('Login failed: ' + params.get('error')); }
    checkAuth();
    </script>
</body>
</html>`
