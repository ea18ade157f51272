package sqlinline

const QCreateSchema = `--sql 5d0f3c8e-6a41-4f0e-9d8b-2b7c1e9a4f10
create table if not exists history_entries (
  id                  uuid primary key,
  session_id          uuid not null,
  original_image_ref  text not null,
  processed_image_ref text not null,
  style_id            text not null,
  intensity           double precision not null,
  created_at          timestamptz not null default now()
);
create index if not exists history_entries_created_at_idx on history_entries (created_at desc);
create table if not exists entitlements (
  owner                 text primary key,
  is_premium_subscriber boolean not null default false,
  temporary_unlocks     jsonb not null default '[]'::jsonb,
  updated_at            timestamptz not null default now()
);
`
